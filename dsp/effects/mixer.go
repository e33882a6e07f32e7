package effects

import "github.com/cwbudde/algo-overdrive/dsp/core"

// Mixer blends a processed (wet) signal into the unprocessed (dry) one:
// out = dry*(1-mix) + wet*mix.
type Mixer struct {
	mix float32
}

// NewMixer creates a mixer with mix fraction in [0, 1], clamped.
func NewMixer(mix float32) *Mixer {
	m := &Mixer{}
	m.SetMix(mix)
	return m
}

// SetMix sets the wet fraction in [0, 1]. Out-of-range values are clamped.
func (m *Mixer) SetMix(mix float32) {
	m.mix = core.Clamp(mix, 0, 1)
}

// SetMixPercent sets the wet amount from a 0-100 percentage.
func (m *Mixer) SetMixPercent(percent float32) {
	m.SetMix(percent / 100)
}

// Mix returns the wet fraction.
func (m *Mixer) Mix() float32 {
	return m.mix
}

// BlendInPlace writes the blend of dry and wet into dry. Only
// min(len(dry), len(wet)) samples are touched. With mix 0 and finite wet
// samples, dry is left bit-identical.
func (m *Mixer) BlendInPlace(dry, wet []float32) {
	n := len(dry)
	if len(wet) < n {
		n = len(wet)
	}

	dryGain := 1 - m.mix
	for i := 0; i < n; i++ {
		dry[i] = dry[i]*dryGain + wet[i]*m.mix
	}
}

// Blend applies BlendInPlace to every channel pair.
func (m *Mixer) Blend(dry, wet [][]float32) {
	for ch := 0; ch < len(dry) && ch < len(wet); ch++ {
		m.BlendInPlace(dry[ch], wet[ch])
	}
}
