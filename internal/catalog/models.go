package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CameraID identifies a camera. Upstream lists use numeric ids; they are kept
// as opaque strings so thumbnails, votes and chat keys all agree.
type CameraID string

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *CameraID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = CameraID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("camera id: %w", err)
	}
	*id = CameraID(n.String())
	return nil
}

// RawCamera is one entry of the upstream camera list (cams.json).
type RawCamera struct {
	ID          CameraID `json:"id"`
	URL         string   `json:"url"`
	EmbedURL    string   `json:"embed_url,omitempty"`
	Location    string   `json:"location"`
	Status      string   `json:"status,omitempty"`
	FirstSeen   string   `json:"first_seen,omitempty"`
	FirstSeenTS *float64 `json:"first_seen_ts,omitempty"`
	LastSeen    string   `json:"last_seen,omitempty"`
}

// CameraRecord is a loaded camera with its derived display fields.
// ShortLocation and Country are computed once at load time.
type CameraRecord struct {
	ID            CameraID `json:"id"`
	RawURL        string   `json:"url"`
	Location      string   `json:"location"`
	ShortLocation string   `json:"location_short"`
	Country       string   `json:"country"`
	CountryCode   string   `json:"country_code"`
	Status        string   `json:"status,omitempty"`

	FirstSeen time.Time `json:"first_seen,omitempty"`
	LastSeen  time.Time `json:"last_seen,omitempty"`
}

// HasFeed reports whether the record has any source URL at all.
func (r CameraRecord) HasFeed() bool {
	return strings.TrimSpace(r.RawURL) != ""
}

// IP returns the first dotted IPv4 address in the camera URL, or "".
func (r CameraRecord) IP() string {
	return ExtractIP(r.RawURL)
}

// Uptime returns how long the camera has been known, if first_seen is set.
func (r CameraRecord) Uptime(now time.Time) (time.Duration, bool) {
	if r.FirstSeen.IsZero() {
		return 0, false
	}
	return now.Sub(r.FirstSeen), true
}

// LastSeenAgo returns the time since the scraper last saw the camera.
func (r CameraRecord) LastSeenAgo(now time.Time) (time.Duration, bool) {
	if r.LastSeen.IsZero() {
		return 0, false
	}
	return now.Sub(r.LastSeen), true
}

// seenLayouts are the timestamp shapes the scraper has written over time.
var seenLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseSeen(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range seenLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// firstSeen prefers the numeric millisecond timestamp over the string form.
func firstSeen(raw RawCamera) time.Time {
	if raw.FirstSeenTS != nil && *raw.FirstSeenTS > 0 {
		return time.UnixMilli(int64(*raw.FirstSeenTS))
	}
	return parseSeen(raw.FirstSeen)
}

// FormatUptime renders d as "3h 04m 05s". Negative durations render as "—".
func FormatUptime(d time.Duration) string {
	if d < 0 {
		return "—"
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total / 60) % 60
	s := total % 60
	return strconv.FormatInt(h, 10) + "h " + pad2(m) + "m " + pad2(s) + "s"
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
