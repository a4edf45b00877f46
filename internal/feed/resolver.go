package feed

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"feedwall/internal/catalog"
)

// Tier is one kind of candidate image source, in trial order.
type Tier int

const (
	TierThumbnail Tier = iota
	TierThumbnailAlt
	TierSnapshot
	TierPlaceholder
)

var tierNames = [...]string{"thumbnail", "thumbnail_alt", "snapshot", "placeholder"}

func (t Tier) String() string {
	if t < 0 || int(t) >= len(tierNames) {
		return "unknown"
	}
	return tierNames[t]
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(text []byte) error {
	i, err := parseName(tierNames[:], text, "tier")
	*t = Tier(i)
	return err
}

// Networked reports whether the tier needs a fetch that can fail.
func (t Tier) Networked() bool {
	return t != TierPlaceholder
}

// Live reports whether the tier shows a frame that changes upstream and is
// worth refreshing.
func (t Tier) Live() bool {
	return t == TierSnapshot
}

// Candidate is one entry of a camera's fallback chain.
type Candidate struct {
	Tier Tier
	URL  string
}

// ProxyMode decides when live snapshots go through the same-origin proxy.
type ProxyMode string

const (
	ProxyAlways ProxyMode = "always"
	// ProxyMixed proxies plain-http cameras only.
	ProxyMixed ProxyMode = "mixed"
	ProxyNever ProxyMode = "never"
)

// ParseProxyMode maps a config value to a mode, defaulting to ProxyAlways.
func ParseProxyMode(s string) ProxyMode {
	switch ProxyMode(strings.ToLower(strings.TrimSpace(s))) {
	case ProxyMixed:
		return ProxyMixed
	case ProxyNever:
		return ProxyNever
	default:
		return ProxyAlways
	}
}

// ResolverConfig holds the URL layout the resolver builds candidates from.
type ResolverConfig struct {
	ThumbnailBase   string
	ThumbnailExt    string
	AltThumbnailExt string
	ProxyPath       string
	ProxyMode       ProxyMode
	Placeholder     string
}

// DefaultResolverConfig matches the routes served by the api package.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		ThumbnailBase:   "/thumbnails/",
		ThumbnailExt:    ".jpg",
		AltThumbnailExt: ".png",
		ProxyPath:       "/feed-proxy",
		ProxyMode:       ProxyAlways,
		Placeholder:     "/static/no-signal.svg",
	}
}

// Resolver turns a camera into its ordered fallback chain.
type Resolver struct {
	cfg    ResolverConfig
	thumbs *catalog.ThumbnailIndex
}

func NewResolver(thumbs *catalog.ThumbnailIndex, cfg ResolverConfig) *Resolver {
	def := DefaultResolverConfig()
	if cfg.ThumbnailBase == "" {
		cfg.ThumbnailBase = def.ThumbnailBase
	}
	if cfg.ThumbnailExt == "" {
		cfg.ThumbnailExt = def.ThumbnailExt
	}
	if cfg.AltThumbnailExt == "" {
		cfg.AltThumbnailExt = def.AltThumbnailExt
	}
	if cfg.ProxyPath == "" {
		cfg.ProxyPath = def.ProxyPath
	}
	if cfg.ProxyMode == "" {
		cfg.ProxyMode = def.ProxyMode
	}
	if cfg.Placeholder == "" {
		cfg.Placeholder = def.Placeholder
	}
	return &Resolver{cfg: cfg, thumbs: thumbs}
}

// Placeholder returns the terminal candidate.
func (r *Resolver) Placeholder() Candidate {
	return Candidate{Tier: TierPlaceholder, URL: r.cfg.Placeholder}
}

// Resolve returns the chain for cam. It is never empty and always ends with
// the placeholder. Cameras without a feed get the placeholder alone.
func (r *Resolver) Resolve(cam catalog.CameraRecord) []Candidate {
	if !cam.HasFeed() {
		return []Candidate{r.Placeholder()}
	}
	chain := make([]Candidate, 0, 4)
	if r.thumbs.Has(cam.ID) {
		base := r.cfg.ThumbnailBase + url.PathEscape(string(cam.ID))
		chain = append(chain,
			Candidate{Tier: TierThumbnail, URL: base + r.cfg.ThumbnailExt},
			Candidate{Tier: TierThumbnailAlt, URL: base + r.cfg.AltThumbnailExt},
		)
	}
	chain = append(chain, Candidate{Tier: TierSnapshot, URL: cam.RawURL}, r.Placeholder())
	return chain
}

// URL returns the address to request for c at time at. Live snapshots get a
// cache-busting timestamp and, depending on the proxy mode, are routed
// through the single-frame proxy.
func (r *Resolver) URL(c Candidate, at time.Time) string {
	if !c.Tier.Live() {
		return c.URL
	}
	sep := "?"
	if strings.Contains(c.URL, "?") {
		sep = "&"
	}
	busted := c.URL + sep + "t=" + strconv.FormatInt(at.UnixMilli(), 10)
	if !r.proxied(c.URL) {
		return busted
	}
	q := url.Values{}
	q.Set("single", "1")
	q.Set("url", busted)
	return r.cfg.ProxyPath + "?" + q.Encode()
}

func (r *Resolver) proxied(raw string) bool {
	switch r.cfg.ProxyMode {
	case ProxyNever:
		return false
	case ProxyMixed:
		return strings.HasPrefix(strings.ToLower(raw), "http://")
	default:
		return true
	}
}
