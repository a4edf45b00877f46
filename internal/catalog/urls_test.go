package catalog

import "testing"

func TestLiveStreamURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://1.2.3.4:80/SnapshotJPEG?Resolution=640x480", "http://1.2.3.4:80/nphMotionJpeg?Resolution=640x480&Quality=Standard"},
		{"http://1.2.3.4/axis-cgi/jpg/image.jpg?resolution=640x480", "http://1.2.3.4/mjpg/video.mjpg"},
		{"http://1.2.3.4/cam1/video.jpg", "http://1.2.3.4/cam1/mjpg/video.mjpg"},
		{"http://1.2.3.4/webcapture.jpg?command=snap&channel=1", "http://1.2.3.4/webcapture.jpg"},
		{"http://1.2.3.4/cgi-bin/snapshot.cgi", "http://1.2.3.4/nphMotionJpeg?Resolution=640x480&Quality=Standard"},
		{"http://1.2.3.4/oneshotimage/getoneshot", "http://1.2.3.4/oneshotimage/getoneshot"},
		{"http://1.2.3.4/mjpg/video.mjpg", "http://1.2.3.4/mjpg/video.mjpg"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := LiveStreamURL(tt.in); got != tt.want {
			t.Errorf("LiveStreamURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractIP(t *testing.T) {
	if got := ExtractIP("http://66.27.116.187:80/mjpg/video.mjpg"); got != "66.27.116.187" {
		t.Errorf("got %q", got)
	}
	if got := ExtractIP("http://camera.example.com/x"); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestNormalizeURL(t *testing.T) {
	if got := NormalizeURL(" http://h/a?x=1&amp;y=2 "); got != "http://h/a?x=1&y=2" {
		t.Errorf("got %q", got)
	}
}
