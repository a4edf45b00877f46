package feed

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"feedwall/internal/ambient"
	"feedwall/internal/catalog"
)

// maxEvents bounds the per-session event backlog kept for polling adapters.
const maxEvents = 256

// EventRecord is an event with its position in the session's log.
type EventRecord struct {
	ID uint64
	At time.Time
	Event
}

type eventLog struct {
	next uint64
	buf  []EventRecord
}

func (l *eventLog) add(at time.Time, e Event) {
	l.next++
	l.buf = append(l.buf, EventRecord{ID: l.next, At: at, Event: e})
	if len(l.buf) > maxEvents {
		l.buf = append(l.buf[:0], l.buf[len(l.buf)-maxEvents:]...)
	}
}

func (l *eventLog) since(id uint64) []EventRecord {
	var out []EventRecord
	for _, r := range l.buf {
		if r.ID > id {
			out = append(out, r)
		}
	}
	return out
}

// SessionOptions configures a Session.
type SessionOptions struct {
	ID       string
	Callsign string
	Resolver *Resolver
	Config   Config
	Clock    Clock
	Rand     *rand.Rand
	Log      *slog.Logger
	// Observer sees every controller event, on the session loop.
	Observer Listener
}

// Session is one viewer's controller and ambient state, driven by a single
// goroutine. Operations and timer callbacks are queued onto that goroutine,
// so the controller never sees concurrent calls.
type Session struct {
	id       string
	callsign string
	clock    Clock
	rng      *rand.Rand
	log      *slog.Logger

	ctrl   *Controller
	audio  *ambient.Coordinator
	events eventLog

	ops       chan func()
	done      chan struct{}
	closeOnce sync.Once
	lastUsed  atomic.Int64
}

// NewSession starts a session loop. Call Close to stop it.
func NewSession(opts SessionOptions) *Session {
	base := opts.Clock
	if base == nil {
		base = SystemClock{}
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Session{
		id:       opts.ID,
		callsign: opts.Callsign,
		clock:    base,
		rng:      rng,
		log:      log,
		ops:      make(chan func()),
		done:     make(chan struct{}),
	}
	s.ctrl = NewController(opts.Resolver, loopClock{base: base, post: s.post}, opts.Config, log)
	s.audio = ambient.NewCoordinator(base.Now(), ambient.DefaultSampleRate, rng)
	s.ctrl.Subscribe(func(e Event) { s.events.add(s.clock.Now(), e) })
	if opts.Observer != nil {
		s.ctrl.Subscribe(opts.Observer)
	}
	s.touch()
	go s.run()
	return s
}

func (s *Session) run() {
	for {
		select {
		case op := <-s.ops:
			op()
		case <-s.done:
			return
		}
	}
}

// post queues f from a timer goroutine. It drops f once the session is closed.
func (s *Session) post(f func()) {
	select {
	case s.ops <- f:
	case <-s.done:
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Callsign returns the viewer's display handle.
func (s *Session) Callsign() string { return s.callsign }

// LastUsed reports when an operation last ran.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *Session) touch() {
	s.lastUsed.Store(s.clock.Now().UnixNano())
}

// Do runs fn on the session loop and waits for it.
func (s *Session) Do(ctx context.Context, fn func(*Controller) error) error {
	return s.do(ctx, func() error { return fn(s.ctrl) })
}

func (s *Session) do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	op := func() { errc <- fn() }
	select {
	case s.ops <- op:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	s.touch()
	select {
	case err := <-errc:
		return err
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Load installs a catalog on the controller.
func (s *Session) Load(ctx context.Context, cat *catalog.Catalog) error {
	return s.Do(ctx, func(c *Controller) error {
		c.Load(cat)
		return nil
	})
}

// View returns the controller snapshot.
func (s *Session) View(ctx context.Context) (View, error) {
	var v View
	err := s.Do(ctx, func(c *Controller) error {
		v = c.View()
		return nil
	})
	return v, err
}

// Events returns the events logged after id.
func (s *Session) Events(ctx context.Context, after uint64) ([]EventRecord, error) {
	var out []EventRecord
	err := s.do(ctx, func() error {
		out = s.events.since(after)
		return nil
	})
	return out, err
}

// Overlay opens or closes the grid overlay and returns its cells when open.
// Opening mutes the ambient bed.
func (s *Session) Overlay(ctx context.Context, open bool, n int) ([]OverlayItem, error) {
	var items []OverlayItem
	err := s.do(ctx, func() error {
		s.audio.SetOverlayOpen(open, s.clock.Now())
		if open {
			items = s.ctrl.Overlay(n, s.rng)
		}
		return nil
	})
	return items, err
}

// Select shows the overlay cell at index and closes the overlay.
func (s *Session) Select(ctx context.Context, index int) (Issue, error) {
	var issue Issue
	err := s.do(ctx, func() error {
		var err error
		issue, err = s.ctrl.ShowAt(index)
		if err != nil {
			return err
		}
		s.audio.SetOverlayOpen(false, s.clock.Now())
		return nil
	})
	return issue, err
}

// AudioState is the ambient state seen by the viewer.
type AudioState struct {
	Muted       bool
	UserMuted   bool
	OverlayOpen bool
	Gain        float64
	TargetGain  float64
}

// ToggleMute flips the user mute.
func (s *Session) ToggleMute(ctx context.Context) (AudioState, error) {
	var st AudioState
	err := s.do(ctx, func() error {
		s.audio.ToggleUserMute(s.clock.Now())
		st = s.audioState()
		return nil
	})
	return st, err
}

// Audio returns the ambient state.
func (s *Session) Audio(ctx context.Context) (AudioState, error) {
	var st AudioState
	err := s.do(ctx, func() error {
		st = s.audioState()
		return nil
	})
	return st, err
}

func (s *Session) audioState() AudioState {
	now := s.clock.Now()
	return AudioState{
		Muted:       s.audio.Muted(),
		UserMuted:   s.audio.UserMuted(),
		OverlayOpen: s.audio.OverlayOpen(),
		Gain:        s.audio.GainAt(now),
		TargetGain:  s.audio.TargetGain(),
	}
}

// AmbientBed returns the session's noise loop and its sample rate.
func (s *Session) AmbientBed(ctx context.Context) ([]float32, int, error) {
	var bed []float32
	err := s.do(ctx, func() error {
		bed = s.audio.Bed()
		return nil
	})
	return bed, s.audio.SampleRate(), err
}

// Close stops the controller's timers and the loop. It is idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		_ = s.Do(context.Background(), func(c *Controller) error {
			c.Close()
			return nil
		})
		close(s.done)
		s.log.Debug("session closed")
	})
}
