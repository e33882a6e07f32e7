package svf

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-overdrive/dsp/core"
)

const (
	defaultCutoff    = 1000.0
	defaultResonance = 1 / math.Sqrt2

	// maxCutoffRatio keeps the cutoff strictly below Nyquist, where tan()
	// in the prewarp diverges.
	maxCutoffRatio = 0.499
	minCutoff      = 1.0
)

// Type selects the filter response.
type Type int

const (
	Lowpass Type = iota
	Highpass
	Bandpass
)

// String implements fmt.Stringer.
func (t Type) String() string {
	switch t {
	case Lowpass:
		return "lowpass"
	case Highpass:
		return "highpass"
	case Bandpass:
		return "bandpass"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Filter is a multi-channel TPT state-variable filter.
type Filter struct {
	typ        Type
	sampleRate float64
	cutoff     float32
	resonance  float32

	g  float32
	r2 float32
	h  float32

	s1 []float32
	s2 []float32
}

// New creates an unprepared filter of the given type.
func New(typ Type) *Filter {
	return &Filter{
		typ:        typ,
		sampleRate: core.DefaultProcessSpec().SampleRate,
		cutoff:     defaultCutoff,
		resonance:  defaultResonance,
	}
}

// Prepare sizes the per-channel state for spec and clears it.
func (f *Filter) Prepare(spec core.ProcessSpec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("svf: %w", err)
	}

	f.sampleRate = spec.SampleRate
	f.s1 = core.EnsureLen(f.s1, spec.NumChannels)
	f.s2 = core.EnsureLen(f.s2, spec.NumChannels)
	f.Reset()
	f.update()

	return nil
}

// Reset clears the integrator state of every channel.
func (f *Filter) Reset() {
	core.Zero(f.s1)
	core.Zero(f.s2)
}

// Release drops the per-channel state. Prepare must be called again before
// processing.
func (f *Filter) Release() {
	f.s1 = nil
	f.s2 = nil
}

// Type returns the response type.
func (f *Filter) Type() Type {
	return f.typ
}

// SetCutoffFrequency sets the cutoff in Hz. Values are clamped to
// [1 Hz, 0.499*sampleRate].
func (f *Filter) SetCutoffFrequency(hz float32) {
	f.cutoff = hz
	f.update()
}

// CutoffFrequency returns the last requested cutoff in Hz.
func (f *Filter) CutoffFrequency() float32 {
	return f.cutoff
}

// SetResonance sets the resonance. Non-positive values are ignored.
func (f *Filter) SetResonance(resonance float32) {
	if resonance <= 0 || math.IsNaN(float64(resonance)) {
		return
	}
	f.resonance = resonance
	f.update()
}

// Resonance returns the current resonance.
func (f *Filter) Resonance() float32 {
	return f.resonance
}

// NumChannels returns the number of prepared channels.
func (f *Filter) NumChannels() int {
	return len(f.s1)
}

func (f *Filter) effectiveCutoff() float64 {
	return math.Min(math.Max(float64(f.cutoff), minCutoff), maxCutoffRatio*f.sampleRate)
}

func (f *Filter) update() {
	g := math.Tan(math.Pi * f.effectiveCutoff() / f.sampleRate)
	r2 := 1 / float64(f.resonance)

	f.g = float32(g)
	f.r2 = float32(r2)
	f.h = float32(1 / (1 + r2*g + g*g))
}

// ProcessSample filters one sample of channel ch.
func (f *Filter) ProcessSample(ch int, x float32) float32 {
	s1, s2 := f.s1[ch], f.s2[ch]

	yHP := f.h * (x - s1*(f.g+f.r2) - s2)

	yBP := yHP*f.g + s1
	s1 = yHP*f.g + yBP

	yLP := yBP*f.g + s2
	s2 = yBP*f.g + yLP

	f.s1[ch], f.s2[ch] = s1, s2

	switch f.typ {
	case Highpass:
		return yHP
	case Bandpass:
		return yBP
	default:
		return yLP
	}
}

// ProcessBlock filters buf of channel ch in place.
func (f *Filter) ProcessBlock(ch int, buf []float32) {
	for i, x := range buf {
		buf[i] = f.ProcessSample(ch, x)
	}

	f.s1[ch] = core.FlushDenormal(f.s1[ch])
	f.s2[ch] = core.FlushDenormal(f.s2[ch])
}

// Process filters every channel of channels in place. Channels beyond the
// prepared count are left untouched.
func (f *Filter) Process(channels [][]float32) {
	for ch, buf := range channels {
		if ch >= len(f.s1) {
			return
		}
		f.ProcessBlock(ch, buf)
	}
}

// Response returns the complex frequency response at freqHz for the current
// settings. The TPT structure is the bilinear transform of the analog
// prototype with cutoff prewarping, so s = j*tan(pi*f/fs)/g.
func (f *Filter) Response(freqHz float64) complex128 {
	g := math.Tan(math.Pi * f.effectiveCutoff() / f.sampleRate)
	r2 := 1 / float64(f.resonance)

	s := complex(0, math.Tan(math.Pi*freqHz/f.sampleRate)/g)
	den := s*s + complex(r2, 0)*s + 1

	switch f.typ {
	case Highpass:
		return s * s / den
	case Bandpass:
		return s / den
	default:
		return 1 / den
	}
}

// MagnitudeDB returns 20*log10(|H(f)|).
func (f *Filter) MagnitudeDB(freqHz float64) float64 {
	return 20 * math.Log10(cmplx.Abs(f.Response(freqHz)))
}
