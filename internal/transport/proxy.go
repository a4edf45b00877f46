package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// Recorder counts proxy fetches by mode and outcome. *metrics.Metrics
// satisfies it.
type Recorder interface {
	IncProxyFetch(mode, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) IncProxyFetch(string, string) {}

// Proxy serves same-origin copies of camera images.
type Proxy struct {
	fetch *Fetcher
	log   *slog.Logger
	rec   Recorder
}

// NewProxy returns a Proxy. rec may be nil.
func NewProxy(fetch *Fetcher, log *slog.Logger, rec Recorder) *Proxy {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Proxy{fetch: fetch, log: log, rec: rec}
}

// FeedProxy handles GET /feed-proxy?url=...&single=1. With single set it
// returns one frame; otherwise it relays the upstream stream as it arrives.
func (p *Proxy) FeedProxy(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if err := ValidateURL(rawURL); err != nil {
		http.Error(w, "Missing or invalid url", http.StatusBadRequest)
		return
	}
	switch r.URL.Query().Get("single") {
	case "1", "true", "yes":
		p.serveFrame(w, r, rawURL, "single", SingleFrameTimeout, http.StatusBadGateway, "No JPEG frame")
	default:
		p.serveStream(w, r, rawURL)
	}
}

// Thumbnail handles GET /thumbnail?url=... for grid previews. Any failure is
// a 404 so the grid can drop the cell.
func (p *Proxy) Thumbnail(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if err := ValidateURL(rawURL); err != nil {
		http.Error(w, "Missing or invalid url", http.StatusBadRequest)
		return
	}
	p.serveFrame(w, r, rawURL, "thumbnail", ThumbnailTimeout, http.StatusNotFound, "Thumbnail unavailable")
}

// SnapshotProxy handles GET /snapshot-proxy?url=... and relays the body
// unchanged, for capturing a still into a canvas.
func (p *Proxy) SnapshotProxy(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if err := ValidateURL(rawURL); err != nil {
		http.Error(w, "Missing or invalid url", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), SnapshotTimeout)
	defer cancel()

	resp, err := p.fetch.Open(ctx, rawURL)
	if err != nil {
		p.rec.IncProxyFetch("snapshot", "error")
		p.log.Debug("snapshot proxy failed", slog.String("error", err.Error()))
		http.Error(w, "Proxy error", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxSnapshotBytes+1))
	if err != nil {
		p.rec.IncProxyFetch("snapshot", "error")
		http.Error(w, "Proxy error", http.StatusBadGateway)
		return
	}
	if len(body) > MaxSnapshotBytes {
		p.rec.IncProxyFetch("snapshot", "too_large")
		http.Error(w, "Snapshot too large", http.StatusBadGateway)
		return
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "image/jpeg"
	}
	p.rec.IncProxyFetch("snapshot", "ok")
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (p *Proxy) serveFrame(w http.ResponseWriter, r *http.Request, rawURL, mode string, timeout time.Duration, failStatus int, failText string) {
	frame, err := p.fetch.Frame(r.Context(), rawURL, timeout)
	if err != nil {
		outcome, status, text := "error", http.StatusBadGateway, "Proxy error"
		if errors.Is(err, ErrNoFrame) {
			outcome, status, text = "no_frame", failStatus, failText
		} else if failStatus == http.StatusNotFound {
			status, text = failStatus, failText
		}
		p.rec.IncProxyFetch(mode, outcome)
		p.log.Debug("frame fetch failed", slog.String("mode", mode), slog.String("error", err.Error()))
		http.Error(w, text, status)
		return
	}
	p.rec.IncProxyFetch(mode, "ok")
	w.Header().Set("Content-Type", frame.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Length", strconv.Itoa(len(frame.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(frame.Data)
}

func (p *Proxy) serveStream(w http.ResponseWriter, r *http.Request, rawURL string) {
	ctx, cancel := context.WithTimeout(r.Context(), StreamTimeout)
	defer cancel()

	resp, err := p.fetch.Open(ctx, rawURL)
	if err != nil {
		p.rec.IncProxyFetch("stream", "error")
		p.log.Debug("stream proxy failed", slog.String("error", err.Error()))
		http.Error(w, "Proxy error", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "image/jpeg"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	p.rec.IncProxyFetch("stream", "ok")

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 8192)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			return
		}
	}
}
