package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const userAgent = "Mozilla/5.0 (compatible; feedwall/1.0)"

// Timeouts for the upstream requests made by each endpoint.
const (
	SingleFrameTimeout = 20 * time.Second
	StreamTimeout      = 300 * time.Second
	ThumbnailTimeout   = 12 * time.Second
	SnapshotTimeout    = 10 * time.Second
	IPInfoTimeout      = 8 * time.Second
)

var (
	// ErrInvalidURL rejects anything that is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("transport: missing or invalid url")
	// ErrUpstream wraps failures talking to a camera host.
	ErrUpstream = errors.New("transport: upstream error")
)

// ValidateURL accepts only http and https addresses.
func ValidateURL(raw string) error {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return nil
	}
	return ErrInvalidURL
}

// Fetcher performs upstream requests. Timeouts are applied per call through
// the context so one client serves every endpoint.
type Fetcher struct {
	Client *http.Client
}

func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{Client: client}
}

// Open issues a GET and returns the response for a 2xx status. The caller
// closes the body.
func (f *Fetcher) Open(ctx context.Context, rawURL string) (*http.Response, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	return resp, nil
}

// Frame fetches rawURL and extracts one image from at most MaxFrameBytes of
// the body.
func (f *Fetcher) Frame(ctx context.Context, rawURL string, timeout time.Duration) (Frame, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := f.Open(ctx, rawURL)
	if err != nil {
		return Frame{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxFrameBytes))
	if err != nil && len(body) == 0 {
		return Frame{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return ExtractFrame(body, resp.Header.Get("Content-Type"))
}
