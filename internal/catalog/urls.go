package catalog

import (
	"net/url"
	"regexp"
	"strings"
)

var ipv4Pattern = regexp.MustCompile(`\b(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})\b`)

// NormalizeURL undoes the HTML entity escaping the scraper leaves in URLs.
func NormalizeURL(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, "&amp;", "&"))
}

// ExtractIP returns the first IPv4 address found in s, or "".
func ExtractIP(s string) string {
	m := ipv4Pattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

var videoJPEGPath = regexp.MustCompile(`(?i)/video\.(jpg|jpeg)$`)

// LiveStreamURL maps snapshot-only camera URLs onto the continuous MJPEG path
// the same firmware usually exposes. Unknown shapes are returned unchanged.
func LiveStreamURL(stored string) string {
	raw := strings.TrimSpace(stored)
	if raw == "" {
		return raw
	}
	u := strings.ToLower(raw)
	switch {
	case strings.Contains(u, "jpgmulreq"), strings.Contains(u, "getoneshot"), strings.Contains(u, "onvif/snapshot"):
		return raw
	case strings.Contains(u, "snapshotjpeg"):
		return origin(raw) + "/nphMotionJpeg?Resolution=640x480&Quality=Standard"
	case strings.Contains(u, "image.jpg"), strings.Contains(u, "image.jpeg"):
		return origin(raw) + "/mjpg/video.mjpg"
	case strings.Contains(u, "video.jpg"), strings.Contains(u, "video.jpeg"):
		p, err := url.Parse(raw)
		if err != nil {
			return raw
		}
		path := strings.TrimRight(p.Path, "/")
		if path == "" {
			path = "/"
		}
		return origin(raw) + videoJPEGPath.ReplaceAllString(path, "/mjpg/video.mjpg")
	case strings.Contains(u, "webcapture") && strings.Contains(u, "command=snap"):
		p, err := url.Parse(raw)
		if err != nil {
			return raw
		}
		path := p.Path
		if path == "" {
			path = "/"
		}
		return origin(raw) + path
	case strings.Contains(u, "snapshot.cgi"), strings.Contains(u, "nph-jpeg"):
		return origin(raw) + "/nphMotionJpeg?Resolution=640x480&Quality=Standard"
	case strings.Contains(u, "/jpg/"), strings.Contains(u, "/jpeg/"):
		return origin(raw) + "/mjpg/video.mjpg"
	}
	return raw
}

func origin(raw string) string {
	p, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return p.Scheme + "://" + p.Host
}
