package ambient

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	// NominalGain is the audible level of the bed.
	NominalGain = 0.35
	// RampTimeConstant is the exponential time constant used for gain changes.
	RampTimeConstant = 50 * time.Millisecond
)

// EffectiveMute is the only input the gain ever sees: the bed is audible only
// while the overlay is closed and the user has not muted it.
func EffectiveMute(overlayOpen, userMuted bool) bool {
	return overlayOpen || userMuted
}

// Gain approaches its target exponentially from the value it had when the
// target was set, like an audio graph's setTargetAtTime.
type Gain struct {
	from   float64
	target float64
	start  time.Time
	tau    time.Duration
}

// ValueAt returns the gain at t.
func (g Gain) ValueAt(t time.Time) float64 {
	if g.tau <= 0 || !t.After(g.start) {
		if g.tau <= 0 {
			return g.target
		}
		return g.from
	}
	dt := t.Sub(g.start).Seconds()
	return g.target + (g.from-g.target)*math.Exp(-dt/g.tau.Seconds())
}

// SetTarget starts a ramp toward target at t.
func (g *Gain) SetTarget(target float64, t time.Time, tau time.Duration) {
	g.from = g.ValueAt(t)
	g.target = target
	g.start = t
	g.tau = tau
}

// Target returns the level the gain is heading to.
func (g Gain) Target() float64 {
	return g.target
}

// Coordinator owns the ambient state of one viewer session.
// It is not safe for concurrent use; the session loop serialises access.
type Coordinator struct {
	userMuted   bool
	overlayOpen bool
	gain        Gain
	tau         time.Duration

	sampleRate int
	rng        *rand.Rand
	bedOnce    sync.Once
	bed        []float32
}

// NewCoordinator returns an audible coordinator whose gain sits at
// NominalGain from now on.
func NewCoordinator(now time.Time, sampleRate int, rng *rand.Rand) *Coordinator {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Coordinator{
		gain:       Gain{from: NominalGain, target: NominalGain, start: now, tau: RampTimeConstant},
		tau:        RampTimeConstant,
		sampleRate: sampleRate,
		rng:        rng,
	}
}

// SetOverlayOpen records whether the grid overlay is showing.
func (c *Coordinator) SetOverlayOpen(open bool, now time.Time) {
	c.overlayOpen = open
	c.apply(now)
}

// ToggleUserMute flips the user's mute choice and returns the new value.
func (c *Coordinator) ToggleUserMute(now time.Time) bool {
	c.userMuted = !c.userMuted
	c.apply(now)
	return c.userMuted
}

func (c *Coordinator) apply(now time.Time) {
	target := NominalGain
	if c.Muted() {
		target = 0
	}
	if target == c.gain.Target() {
		return
	}
	c.gain.SetTarget(target, now, c.tau)
}

// Muted reports the effective mute.
func (c *Coordinator) Muted() bool {
	return EffectiveMute(c.overlayOpen, c.userMuted)
}

// UserMuted reports the user's own choice, independent of the overlay.
func (c *Coordinator) UserMuted() bool {
	return c.userMuted
}

// OverlayOpen reports whether the overlay is open.
func (c *Coordinator) OverlayOpen() bool {
	return c.overlayOpen
}

// GainAt returns the current gain value.
func (c *Coordinator) GainAt(t time.Time) float64 {
	return c.gain.ValueAt(t)
}

// TargetGain returns the level the gain is ramping to.
func (c *Coordinator) TargetGain() float64 {
	return c.gain.Target()
}

// Bed returns the session's noise loop, generating it on first use.
func (c *Coordinator) Bed() []float32 {
	c.bedOnce.Do(func() {
		c.bed = GenerateBed(c.sampleRate, BedLength, c.rng)
	})
	return c.bed
}

// SampleRate returns the bed's sample rate.
func (c *Coordinator) SampleRate() int {
	return c.sampleRate
}
