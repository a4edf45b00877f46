package ambient

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveMute_truth_table(t *testing.T) {
	cases := []struct {
		overlayOpen, userMuted, muted bool
	}{
		{false, false, false},
		{true, false, true},
		{false, true, true},
		{true, true, true},
	}
	for _, c := range cases {
		assert.Equal(t, c.muted, EffectiveMute(c.overlayOpen, c.userMuted),
			"overlayOpen=%v userMuted=%v", c.overlayOpen, c.userMuted)
	}
}

func TestCoordinator_ramps_instead_of_jumping(t *testing.T) {
	t0 := time.Unix(1000, 0)
	c := NewCoordinator(t0, 8000, rand.New(rand.NewPCG(1, 1)))
	require.InDelta(t, NominalGain, c.GainAt(t0), 1e-9)

	c.SetOverlayOpen(true, t0)
	assert.True(t, c.Muted())
	assert.Equal(t, 0.0, c.TargetGain())

	// Right at the change the gain has not moved yet.
	assert.InDelta(t, NominalGain, c.GainAt(t0), 1e-9)
	// One time constant later it has covered ~63% of the distance.
	mid := c.GainAt(t0.Add(RampTimeConstant))
	assert.InDelta(t, NominalGain*math.Exp(-1), mid, 1e-6)
	// After many time constants it is effectively silent.
	assert.Less(t, c.GainAt(t0.Add(20*RampTimeConstant)), 1e-6)
}

func TestCoordinator_user_mute_survives_overlay_close(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewCoordinator(now, 8000, nil)

	assert.True(t, c.ToggleUserMute(now))
	c.SetOverlayOpen(true, now)
	c.SetOverlayOpen(false, now.Add(time.Second))

	assert.True(t, c.Muted(), "closing the overlay must not unmute a user-muted bed")
	assert.True(t, c.UserMuted())
	assert.Equal(t, 0.0, c.TargetGain())

	assert.False(t, c.ToggleUserMute(now.Add(2*time.Second)))
	assert.False(t, c.Muted())
	assert.Equal(t, NominalGain, c.TargetGain())
}

func TestCoordinator_retarget_mid_ramp_is_continuous(t *testing.T) {
	t0 := time.Unix(0, 0)
	c := NewCoordinator(t0, 8000, nil)
	c.SetOverlayOpen(true, t0)
	tMid := t0.Add(30 * time.Millisecond)
	before := c.GainAt(tMid)
	c.SetOverlayOpen(false, tMid)
	assert.InDelta(t, before, c.GainAt(tMid), 1e-9, "changing target must not jump")
}

func TestGenerateBed(t *testing.T) {
	bed := GenerateBed(8000, BedLength, rand.New(rand.NewPCG(7, 7)))
	require.Len(t, bed, 12000)
	for _, s := range bed {
		if s > amplitude || s < -amplitude {
			t.Fatalf("sample %v outside amplitude", s)
		}
	}

	c := NewCoordinator(time.Now(), 8000, rand.New(rand.NewPCG(7, 7)))
	first := c.Bed()
	assert.Same(t, &first[0], &c.Bed()[0], "bed is generated once per session")
}

func TestEncodeWAV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeWAV(&buf, []float32{0, 1, -1, 0.5}, 8000))

	b := buf.Bytes()
	require.Len(t, b, 44+8)
	assert.Equal(t, "RIFF", string(b[0:4]))
	assert.Equal(t, "WAVE", string(b[8:12]))
	assert.Equal(t, uint32(8000), binary.LittleEndian.Uint32(b[24:28]))
	assert.Equal(t, uint32(8), binary.LittleEndian.Uint32(b[40:44]))
	assert.Equal(t, int16(math.MaxInt16), int16(binary.LittleEndian.Uint16(b[46:48])))

	assert.Error(t, EncodeWAV(&buf, nil, 0))
}
