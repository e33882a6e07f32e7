package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic float32 sine wave starting at
// phase 0. Each sample is computed in float64 and narrowed.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float32 {
	out := make([]float32, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = float32(amplitude * math.Sin(step*float64(i)))
	}
	return out
}

// StereoSine returns numChannels identical copies of DeterministicSine.
func StereoSine(numChannels int, freqHz, sampleRate, amplitude float64, length int) [][]float32 {
	out := make([][]float32, numChannels)
	for ch := range out {
		out[ch] = DeterministicSine(freqHz, sampleRate, amplitude, length)
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float32 {
	out := make([]float32, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = float32((rng.Float64()*2 - 1) * amplitude)
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float32 {
	out := make([]float32, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float32, length int) []float32 {
	out := make([]float32, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// Clone deep-copies a planar buffer.
func Clone(channels [][]float32) [][]float32 {
	out := make([][]float32, len(channels))
	for ch, samples := range channels {
		out[ch] = append([]float32(nil), samples...)
	}
	return out
}
