package feed

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestRotation_window_properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("aligned windows", prop.ForAll(
		func(k int64, w int64) bool {
			r := Rotation{Window: time.Duration(w) * time.Millisecond}
			start := time.UnixMilli(k * w)
			idx := r.WindowIndex(start)
			return idx == k &&
				r.WindowIndex(start.Add(time.Duration(w-1)*time.Millisecond)) == idx &&
				r.WindowIndex(start.Add(time.Duration(w)*time.Millisecond)) == idx+1
		},
		gen.Int64Range(-1_000_000, 1_000_000),
		gen.Int64Range(1, 10_000_000),
	))

	properties.Property("index is always in range", prop.ForAll(
		func(ms int64, n int) bool {
			i := Rotation{Window: time.Minute}.IndexAt(time.UnixMilli(ms), n)
			return i >= 0 && i < n
		},
		gen.Int64Range(-1<<40, 1<<40),
		gen.IntRange(1, 500),
	))

	properties.TestingRun(t)
}

func TestRotation_NextBoundary(t *testing.T) {
	r := Rotation{Window: 5 * time.Minute}
	now := time.UnixMilli(7*300_000 + 12_345)
	assert.Equal(t, time.UnixMilli(8*300_000), r.NextBoundary(now))
	assert.Equal(t, 7%3, r.IndexAt(now, 3))
	assert.Equal(t, 0, r.IndexAt(now, 0))
}

func TestRotation_Countdown(t *testing.T) {
	r := Rotation{Window: 5 * time.Minute}
	boundary := time.UnixMilli(10 * 300_000)

	assert.Equal(t, int64(2), r.Countdown(boundary.Add(-1500*time.Millisecond)))
	assert.Equal(t, int64(1), r.Countdown(boundary.Add(-time.Millisecond)))
	assert.Equal(t, int64(300), r.Countdown(boundary))

	assert.Equal(t, "05:00", FormatCountdown(300))
	assert.Equal(t, "00:09", FormatCountdown(9))
	assert.Equal(t, "00:00", FormatCountdown(-3))
}

func TestRotation_zero_window_uses_default(t *testing.T) {
	r := Rotation{}
	assert.Equal(t, int64(1), r.WindowIndex(time.UnixMilli(DefaultWindow.Milliseconds())))
}
