package feed

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedwall/internal/catalog"
)

func newTestSession(t *testing.T, clock Clock, observer Listener) *Session {
	t.Helper()
	s := NewSession(SessionOptions{
		ID:       "s1",
		Callsign: "USER_123",
		Resolver: NewResolver(catalog.NewThumbnailIndex(nil), DefaultResolverConfig()),
		Config:   DefaultConfig(),
		Clock:    clock,
		Rand:     rand.New(rand.NewPCG(3, 4)),
		Observer: observer,
	})
	t.Cleanup(s.Close)
	return s
}

func TestSession_operations_run_on_loop(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(epoch)
	s := newTestSession(t, clock, nil)

	require.NoError(t, s.Load(ctx, catalog.New(liveCams(5), epoch)))
	v, err := s.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateDisplaying, v.State)
	assert.Equal(t, "USER_123", s.Callsign())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Do(ctx, func(c *Controller) error {
				_, err := c.Advance(1)
				return err
			})
		}()
	}
	wg.Wait()

	v, err = s.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20%5, v.Index)
}

func TestSession_timer_callbacks_are_serialised(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(epoch)
	s := newTestSession(t, clock, nil)
	require.NoError(t, s.Load(ctx, catalog.New(liveCams(2), epoch)))

	clock.Advance(3 * time.Second)

	events, err := s.Events(ctx, 0)
	require.NoError(t, err)
	var refreshes int
	for _, e := range events {
		if e.Kind == EventRefresh {
			refreshes++
		}
	}
	assert.Equal(t, 1, refreshes)
	last := events[len(events)-1]
	tail, err := s.Events(ctx, last.ID)
	require.NoError(t, err)
	assert.Empty(t, tail)
}

func TestSession_overlay_and_audio(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, newFakeClock(epoch), nil)
	require.NoError(t, s.Load(ctx, catalog.New(liveCams(30), epoch)))

	items, err := s.Overlay(ctx, true, 24)
	require.NoError(t, err)
	assert.Len(t, items, 24)

	audio, err := s.Audio(ctx)
	require.NoError(t, err)
	assert.True(t, audio.Muted)
	assert.True(t, audio.OverlayOpen)

	issue, err := s.Select(ctx, items[3].Index)
	require.NoError(t, err)
	assert.Equal(t, items[3].Camera.ID, issue.Tag.CameraID)

	audio, err = s.Audio(ctx)
	require.NoError(t, err)
	assert.False(t, audio.Muted)

	audio, err = s.ToggleMute(ctx)
	require.NoError(t, err)
	assert.True(t, audio.UserMuted)
	assert.True(t, audio.Muted)

	bed, rate, err := s.AmbientBed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 44100, rate)
	assert.NotEmpty(t, bed)
}

func TestSession_observer_and_close(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	var kinds []EventKind
	s := newTestSession(t, newFakeClock(epoch), func(e Event) {
		mu.Lock()
		kinds = append(kinds, e.Kind)
		mu.Unlock()
	})
	require.NoError(t, s.Load(ctx, catalog.New(liveCams(2), epoch)))

	mu.Lock()
	assert.Contains(t, kinds, EventDisplay)
	mu.Unlock()

	s.Close()
	s.Close()
	_, err := s.View(ctx)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSession_Do_honours_context(t *testing.T) {
	s := newTestSession(t, newFakeClock(epoch), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Do(ctx, func(*Controller) error { return nil })
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestEventLog_is_bounded(t *testing.T) {
	var l eventLog
	for i := 0; i < maxEvents+10; i++ {
		l.add(epoch, Event{Kind: EventRefresh})
	}
	assert.Len(t, l.buf, maxEvents)
	assert.Equal(t, uint64(11), l.buf[0].ID)
	assert.Len(t, l.since(uint64(maxEvents)), 10)
}
