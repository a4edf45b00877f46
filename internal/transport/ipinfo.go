package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrInvalidIP rejects anything but a dotted IPv4 address.
var ErrInvalidIP = errors.New("transport: invalid ip")

// ValidIPv4 reports whether s is a plain dotted-quad IPv4 address.
func ValidIPv4(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is4() && !strings.Contains(s, ":")
}

type ipEntry struct {
	body    []byte
	expires time.Time
}

// IPInfo looks up camera host details from an ipinfo-style JSON API. Results
// are cached and upstream calls are rate limited.
type IPInfo struct {
	base    string
	fetch   *Fetcher
	limiter *rate.Limiter
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	cache map[string]ipEntry
}

// NewIPInfo returns a client for base (e.g. https://ipinfo.io). rps limits
// upstream requests per second; zero or less disables the limit.
func NewIPInfo(base string, fetch *Fetcher, rps float64, ttl time.Duration) *IPInfo {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &IPInfo{
		base:    strings.TrimRight(base, "/"),
		fetch:   fetch,
		limiter: rate.NewLimiter(limit, 1),
		ttl:     ttl,
		now:     time.Now,
		cache:   make(map[string]ipEntry),
	}
}

// Lookup returns the raw JSON document for ip.
func (c *IPInfo) Lookup(ctx context.Context, ip string) ([]byte, error) {
	ip = strings.TrimSpace(ip)
	if !ValidIPv4(ip) {
		return nil, ErrInvalidIP
	}

	c.mu.Lock()
	e, ok := c.cache[ip]
	c.mu.Unlock()
	if ok && c.now().Before(e.expires) {
		return e.body, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	ctx, cancel := context.WithTimeout(ctx, IPInfoTimeout)
	defer cancel()
	resp, err := c.fetch.Open(ctx, c.base+"/"+ip+"/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	now := c.now()
	c.mu.Lock()
	c.evictExpired(now)
	c.cache[ip] = ipEntry{body: body, expires: now.Add(c.ttl)}
	c.mu.Unlock()
	return body, nil
}

// evictExpired drops stale entries. c.mu must be held.
func (c *IPInfo) evictExpired(now time.Time) {
	for ip, e := range c.cache {
		if !now.Before(e.expires) {
			delete(c.cache, ip)
		}
	}
}

// Handler serves GET /ipinfo?ip=...
func (c *IPInfo) Handler(rec Recorder) http.HandlerFunc {
	if rec == nil {
		rec = nopRecorder{}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := c.Lookup(r.Context(), r.URL.Query().Get("ip"))
		switch {
		case errors.Is(err, ErrInvalidIP):
			http.Error(w, "Invalid ip", http.StatusBadRequest)
			return
		case err != nil:
			rec.IncProxyFetch("ipinfo", "error")
			http.Error(w, "IP info error", http.StatusBadGateway)
			return
		}
		rec.IncProxyFetch("ipinfo", "ok")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}
}
