package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"sync"
	"time"
)

// ErrCatalogUnavailable is returned when the camera list cannot be fetched or
// parsed. Callers keep running with an empty catalog.
var ErrCatalogUnavailable = errors.New("camera catalog unavailable")

// Source supplies the raw camera list.
type Source interface {
	Fetch(ctx context.Context) ([]RawCamera, error)
}

// FileSource reads a cams.json file from disk.
type FileSource struct {
	Path string
}

// Fetch implements Source.Fetch.
func (s FileSource) Fetch(ctx context.Context) ([]RawCamera, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeRaw(f)
}

// HTTPSource fetches the camera list from a URL.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// Fetch implements Source.Fetch.
func (s HTTPSource) Fetch(ctx context.Context) ([]RawCamera, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: HTTP %d", s.URL, resp.StatusCode)
	}
	return decodeRaw(resp.Body)
}

// StaticSource serves a fixed list; used by tests and by callers that already
// hold the records.
type StaticSource []RawCamera

// Fetch implements Source.Fetch.
func (s StaticSource) Fetch(context.Context) ([]RawCamera, error) {
	out := make([]RawCamera, len(s))
	copy(out, s)
	return out, nil
}

func decodeRaw(r io.Reader) ([]RawCamera, error) {
	var raw []RawCamera
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode camera list: %w", err)
	}
	return raw, nil
}

// Catalog is the per-session ordered camera list. It is never mutated after
// Load returns; a reload builds a new Catalog with a new permutation.
type Catalog struct {
	records []CameraRecord
	loaded  time.Time
}

// Empty returns a catalog with no cameras.
func Empty() *Catalog {
	return &Catalog{}
}

// New wraps records, already ordered, as a catalog. The slice is copied.
func New(records []CameraRecord, loadedAt time.Time) *Catalog {
	out := make([]CameraRecord, len(records))
	copy(out, records)
	return &Catalog{records: out, loaded: loadedAt}
}

// Len returns the number of cameras.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// At returns the record at position i. i must be in [0, Len()).
func (c *Catalog) At(i int) CameraRecord {
	return c.records[i]
}

// Records returns a copy of the ordered records.
func (c *Catalog) Records() []CameraRecord {
	if c == nil {
		return nil
	}
	out := make([]CameraRecord, len(c.records))
	copy(out, c.records)
	return out
}

// LoadedAt reports when the catalog was built.
func (c *Catalog) LoadedAt() time.Time {
	return c.loaded
}

// Loader builds catalogs from a Source.
type Loader struct {
	source Source
	parser *LocationParser
	log    *slog.Logger

	mu  sync.Mutex // guards rng; sessions load concurrently
	rng *rand.Rand
}

// NewLoader returns a Loader. rng drives the per-session shuffle; nil uses a
// randomly seeded generator.
func NewLoader(source Source, parser *LocationParser, rng *rand.Rand, log *slog.Logger) *Loader {
	if parser == nil {
		parser = NewLocationParser(nil)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Loader{source: source, parser: parser, rng: rng, log: log}
}

// Load fetches the raw list, derives display fields, drops records with a
// missing or duplicate id, and shuffles the result. On failure it returns an
// empty catalog together with an error wrapping ErrCatalogUnavailable.
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	raw, err := l.source.Fetch(ctx)
	if err != nil {
		l.log.Warn("catalog load failed", "error", err)
		return Empty(), fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	records := make([]CameraRecord, 0, len(raw))
	seen := make(map[CameraID]struct{}, len(raw))
	for _, rc := range raw {
		if rc.ID == "" {
			continue
		}
		if _, dup := seen[rc.ID]; dup {
			l.log.Debug("duplicate camera id dropped", "camera_id", string(rc.ID))
			continue
		}
		seen[rc.ID] = struct{}{}
		records = append(records, l.build(rc))
	}

	l.mu.Lock()
	shuffle(records, l.rng)
	l.mu.Unlock()
	l.log.Info("catalog loaded", "cameras", len(records), "dropped", len(raw)-len(records))
	return &Catalog{records: records, loaded: time.Now()}, nil
}

func (l *Loader) build(rc RawCamera) CameraRecord {
	url := NormalizeURL(rc.URL)
	if url == "" {
		url = NormalizeURL(rc.EmbedURL)
	}
	short := l.parser.Short(rc.Location)
	country := CountryOf(short)
	return CameraRecord{
		ID:            rc.ID,
		RawURL:        url,
		Location:      rc.Location,
		ShortLocation: short,
		Country:       country,
		CountryCode:   Canonical(country),
		Status:        rc.Status,
		FirstSeen:     firstSeen(rc),
		LastSeen:      parseSeen(rc.LastSeen),
	}
}

// shuffle is an in-place Fisher–Yates permutation.
func shuffle(records []CameraRecord, rng *rand.Rand) {
	for i := len(records) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		records[i], records[j] = records[j], records[i]
	}
}
