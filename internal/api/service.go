package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"feedwall/internal/catalog"
	"feedwall/internal/feed"
	"feedwall/internal/platform/logger"
	"feedwall/internal/platform/metrics"
	"feedwall/internal/prefs"
)

// DefaultIdleTTL is how long an untouched session lives.
const DefaultIdleTTL = 30 * time.Minute

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Loader   *catalog.Loader
	Resolver *feed.Resolver
	Feed     feed.Config
	Prefs    prefs.Store
	IdleTTL  time.Duration
	// Clock drives every session; nil uses the system clock.
	Clock   feed.Clock
	Log     *slog.Logger
	Metrics *metrics.Metrics
}

// Service creates, finds and expires viewer sessions.
type Service struct {
	repo     Repository
	loader   *catalog.Loader
	resolver *feed.Resolver
	feedCfg  feed.Config
	prefs    prefs.Store
	ttl      time.Duration
	clock    feed.Clock
	log      *slog.Logger
	metrics  *metrics.Metrics

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewService returns a Service that keeps sessions in repo.
func NewService(repo Repository, cfg ServiceConfig) *Service {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = feed.SystemClock{}
	}
	if cfg.Log == nil {
		cfg.Log = logger.Discard()
	}
	if cfg.Prefs == nil {
		cfg.Prefs = prefs.NewInMemoryStore()
	}
	return &Service{
		repo:     repo,
		loader:   cfg.Loader,
		resolver: cfg.Resolver,
		feedCfg:  cfg.Feed,
		prefs:    cfg.Prefs,
		ttl:      cfg.IdleTTL,
		clock:    cfg.Clock,
		log:      cfg.Log,
		metrics:  cfg.Metrics,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// CreateSession loads a freshly shuffled catalog, starts a session on it and
// restores the viewer's saved country filter. A catalog failure is logged and
// the session starts empty.
func (s *Service) CreateSession(ctx context.Context, viewer string) (*Entry, error) {
	cat, err := s.loader.Load(ctx)
	if err != nil {
		s.log.Warn("starting session without cameras", slog.String("error", err.Error()))
	}
	if s.metrics != nil {
		s.metrics.SetCatalogSize(cat.Len())
	}

	id := uuid.NewString()
	sess := feed.NewSession(feed.SessionOptions{
		ID:       id,
		Callsign: s.callsign(),
		Resolver: s.resolver,
		Config:   s.feedCfg,
		Clock:    s.clock,
		Log:      logger.WithSession(s.log, id),
		Observer: s.observe,
	})
	if err := sess.Load(ctx, cat); err != nil {
		sess.Close()
		return nil, err
	}

	if viewer != "" {
		filter, err := prefs.ForViewer(s.prefs, viewer).CountryFilter(ctx)
		if err != nil {
			s.log.Warn("could not read saved filter", slog.String("viewer", viewer), slog.String("error", err.Error()))
		}
		if filter != "" {
			err := sess.Do(ctx, func(c *feed.Controller) error { return c.SetCountryFilter(filter) })
			if err != nil && !errors.Is(err, feed.ErrFilterYieldsEmpty) {
				sess.Close()
				return nil, err
			}
		}
	}

	e := &Entry{Session: sess, Viewer: viewer, Created: s.clock.Now()}
	s.repo.Add(e)
	s.log.Info("session started",
		slog.String("session_id", id),
		slog.String("callsign", sess.Callsign()),
		slog.Int("cameras", cat.Len()))
	return e, nil
}

// Session returns the live session with id.
func (s *Service) Session(id string) (*Entry, error) {
	e, ok := s.repo.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

// EndSession stops the session's timers and forgets it.
func (s *Service) EndSession(id string) error {
	e, ok := s.repo.Remove(id)
	if !ok {
		return ErrSessionNotFound
	}
	e.Session.Close()
	s.log.Info("session ended", slog.String("session_id", id))
	return nil
}

// View assembles the JSON snapshot of a session.
func (s *Service) View(ctx context.Context, e *Entry) (SessionView, error) {
	v, err := e.Session.View(ctx)
	if err != nil {
		return SessionView{}, err
	}
	audio, err := e.Session.Audio(ctx)
	if err != nil {
		return SessionView{}, err
	}
	now := s.clock.Now()
	out := SessionView{
		ID:        e.Session.ID(),
		Callsign:  e.Session.Callsign(),
		State:     v.State,
		Index:     v.Index,
		Visible:   v.Visible,
		Retrying:  v.Retrying,
		Filter:    v.Filter,
		Countries: v.Countries,
		Audio:     audioView(audio),
	}
	if out.Countries == nil {
		out.Countries = []string{}
	}
	switch v.State {
	case feed.StateIdle:
		out.Message = "no cameras"
	case feed.StateExhausted:
		out.Message = "no cameras match filter"
	}
	if v.HasCamera {
		cv := cameraView(v.Camera, now)
		out.Camera = &cv
	}
	if !v.Source.Zero() {
		src := v.Source
		out.Source = &src
	}
	if !v.Preload.Zero() {
		pre := v.Preload
		out.Preload = &pre
	}
	if s.feedCfg.Window > 0 {
		left := feed.Rotation{Window: s.feedCfg.Window}.Countdown(now)
		out.CountdownSeconds = left
		out.Countdown = feed.FormatCountdown(left)
	}
	return out, nil
}

// ActiveSessions returns the number of live sessions.
func (s *Service) ActiveSessions() int {
	return s.repo.Count()
}

// Prefs returns the preferences of the viewer owning e. Sessions without a
// viewer id are scoped to the session itself.
func (s *Service) Prefs(e *Entry) *prefs.Prefs {
	viewer := e.Viewer
	if viewer == "" {
		viewer = e.Session.ID()
	}
	return prefs.ForViewer(s.prefs, viewer)
}

// Catalog loads the catalog for listing endpoints.
func (s *Service) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	return s.loader.Load(ctx)
}

// SweepIdle ends sessions untouched for longer than the idle TTL and returns
// how many it ended.
func (s *Service) SweepIdle(now time.Time) int {
	n := 0
	for _, e := range s.repo.IdleSince(now.Add(-s.ttl)) {
		if _, ok := s.repo.Remove(e.Session.ID()); ok {
			e.Session.Close()
			n++
		}
	}
	if n > 0 {
		s.log.Info("idle sessions expired", slog.Int("count", n))
	}
	return n
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.SweepIdle(now)
		}
	}
}

// Shutdown ends every session.
func (s *Service) Shutdown() {
	for _, e := range s.repo.List() {
		_ = s.EndSession(e.Session.ID())
	}
}

func (s *Service) callsign() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("USER_%03d", 100+s.rng.IntN(900))
}

// observe feeds controller events into metrics. It runs on session loops.
func (s *Service) observe(e feed.Event) {
	if s.metrics == nil {
		return
	}
	switch {
	case e.Kind == feed.EventAutoSkip:
		s.metrics.IncAutoSkips()
	case e.Kind == feed.EventDisplay && errors.Is(e.Err, feed.ErrSourceUnreachable):
		s.metrics.IncTierEscalation(e.Source.Tag.Tier.String())
	case e.Kind == feed.EventDisplay && errors.Is(e.Err, feed.ErrAllTiersExhausted):
		s.metrics.IncTierEscalation(feed.TierPlaceholder.String())
	}
}
