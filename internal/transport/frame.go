// Package transport fetches camera images on behalf of the browser: single
// frames cut out of snapshot or MJPEG responses, passthrough streams, and IP
// lookups.
package transport

import (
	"bytes"
	"errors"
	"mime"
	"strings"

	"github.com/mattn/go-mjpeg"
)

// MaxFrameBytes caps how much of an upstream body is read for one frame.
const MaxFrameBytes = 512 << 10

// MaxSnapshotBytes caps a relayed snapshot body.
const MaxSnapshotBytes = 4 << 20

// ErrNoFrame means the body held no complete PNG or JPEG image.
var ErrNoFrame = errors.New("transport: no image frame")

var (
	pngSignature = []byte("\x89PNG\r\n\x1a\n")
	jpegSOI      = []byte{0xff, 0xd8}
	jpegEOI      = []byte{0xff, 0xd9}
)

// Frame is one still image.
type Frame struct {
	ContentType string
	Data        []byte
}

// ExtractFrame finds the first image in body. PNG bodies pass through whole.
// Multipart MJPEG bodies are split on their boundary first; anything else is
// scanned for the first JPEG start and end markers.
func ExtractFrame(body []byte, contentType string) (Frame, error) {
	if bytes.HasPrefix(body, pngSignature) {
		return Frame{ContentType: "image/png", Data: body}, nil
	}
	if part, ok := firstPart(body, contentType); ok {
		if f, err := cutJPEG(part); err == nil {
			return f, nil
		}
	}
	return cutJPEG(body)
}

func firstPart(body []byte, contentType string) ([]byte, bool) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		return nil, false
	}
	part, err := mjpeg.NewDecoder(bytes.NewReader(body), params["boundary"]).DecodeRaw()
	if err != nil || len(part) == 0 {
		return nil, false
	}
	return part, true
}

func cutJPEG(b []byte) (Frame, error) {
	soi := bytes.Index(b, jpegSOI)
	if soi < 0 {
		return Frame{}, ErrNoFrame
	}
	eoi := bytes.Index(b[soi+len(jpegSOI):], jpegEOI)
	if eoi < 0 {
		return Frame{}, ErrNoFrame
	}
	end := soi + len(jpegSOI) + eoi + len(jpegEOI)
	return Frame{ContentType: "image/jpeg", Data: b[soi:end]}, nil
}
