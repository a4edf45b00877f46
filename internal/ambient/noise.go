// Package ambient produces the low noise bed played under the camera wall and
// decides when it is audible.
package ambient

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"math/rand/v2"
	"time"
)

const (
	// DefaultSampleRate is used when a caller does not pick one.
	DefaultSampleRate = 44100
	// BedLength is the length of the generated loop.
	BedLength = 1500 * time.Millisecond

	// smoothing is the one-pole low-pass coefficient; higher is darker.
	smoothing = 0.98
	// amplitude scales the filtered noise so it sits well under speech.
	amplitude = 0.12
)

// GenerateBed renders a mono loop of low-pass filtered white noise.
// The loop is meant to be played back continuously.
func GenerateBed(sampleRate int, length time.Duration, rng *rand.Rand) []float32 {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	n := int(float64(sampleRate) * length.Seconds())
	out := make([]float32, n)
	last := 0.0
	for i := range out {
		white := rng.Float64()*2 - 1
		last = smoothing*last + (1-smoothing)*white
		out[i] = float32(last * amplitude)
	}
	return out
}

// EncodeWAV writes samples as a 16-bit PCM mono WAV file.
func EncodeWAV(w io.Writer, samples []float32, sampleRate int) error {
	if sampleRate <= 0 {
		return errors.New("ambient: sample rate must be positive")
	}
	const (
		channels      = 1
		bitsPerSample = 16
	)
	dataLen := uint32(len(samples) * 2)
	header := struct {
		ChunkID       [4]byte
		ChunkSize     uint32
		Format        [4]byte
		Subchunk1ID   [4]byte
		Subchunk1Size uint32
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Subchunk2ID   [4]byte
		Subchunk2Size uint32
	}{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataLen,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   channels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * channels * bitsPerSample / 8),
		BlockAlign:    channels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataLen,
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	pcm := make([]int16, len(samples))
	for i, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		pcm[i] = int16(math.Round(v * math.MaxInt16))
	}
	return binary.Write(w, binary.LittleEndian, pcm)
}
