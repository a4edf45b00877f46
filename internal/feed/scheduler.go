package feed

import (
	"fmt"
	"time"
)

// DefaultWindow is the rotation cadence.
const DefaultWindow = 5 * time.Minute

// Rotation maps wall-clock time onto fixed windows so every session changes
// feed at the same instants. Only the cadence is shared: each session shuffles
// its own catalog, so the same index names different cameras in different
// sessions.
type Rotation struct {
	Window time.Duration
}

func (r Rotation) windowMillis() int64 {
	w := r.Window.Milliseconds()
	if w <= 0 {
		w = DefaultWindow.Milliseconds()
	}
	return w
}

// WindowIndex returns floor(t / Window).
func (r Rotation) WindowIndex(t time.Time) int64 {
	return floorDiv(t.UnixMilli(), r.windowMillis())
}

// IndexAt returns the position the rotation selects for a list of n cameras.
func (r Rotation) IndexAt(t time.Time, n int) int {
	if n <= 0 {
		return 0
	}
	m := r.WindowIndex(t) % int64(n)
	if m < 0 {
		m += int64(n)
	}
	return int(m)
}

// NextBoundary returns the start of the window after the one containing t.
func (r Rotation) NextBoundary(t time.Time) time.Time {
	return time.UnixMilli((r.WindowIndex(t) + 1) * r.windowMillis())
}

// Countdown returns the whole seconds left until the next boundary, rounded
// up and never negative.
func (r Rotation) Countdown(t time.Time) int64 {
	left := r.NextBoundary(t).Sub(t).Milliseconds()
	if left <= 0 {
		return 0
	}
	return (left + 999) / 1000
}

// FormatCountdown renders seconds as mm:ss.
func FormatCountdown(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
