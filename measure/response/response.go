// Package response measures the magnitude response of a block processor
// from its impulse response.
//
// The processor is driven with a scaled unit impulse followed by silence,
// the captured output is transformed with algo-fft, and the magnitude is
// normalized by the impulse amplitude. Nonlinear processors should be
// measured with a small amplitude so they stay in their linear region.
package response

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

const (
	defaultLength    = 8192
	defaultBlockSize = 512
	defaultAmplitude = 1.0
)

// ErrInvalidConfig is returned for a non-positive sample rate, length or
// block size.
var ErrInvalidConfig = errors.New("response: invalid config")

// Processor renders planar audio in place.
type Processor interface {
	Process(buf [][]float32)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(buf [][]float32)

// Process calls f(buf).
func (f ProcessorFunc) Process(buf [][]float32) { f(buf) }

// Config holds measurement parameters.
type Config struct {
	SampleRate float64
	// Length is the FFT and capture length. Zero selects 8192.
	Length int
	// BlockSize is the render block size. Zero selects 512.
	BlockSize int
	// Channels is the number of identical channels rendered. Zero selects 1.
	// Channel 0 is measured.
	Channels int
	// Amplitude of the impulse. Zero selects 1.
	Amplitude float32
}

// Response is a measured magnitude response over bins [0, Length/2].
type Response struct {
	SampleRate float64
	Length     int
	// Magnitude is the linear gain per bin.
	Magnitude []float64
}

// Measure captures the impulse response of p and returns its magnitude
// spectrum.
func Measure(p Processor, cfg Config) (*Response, error) {
	cfg, err := normalize(cfg)
	if err != nil {
		return nil, err
	}

	ir := Capture(p, cfg)

	plan, err := algofft.NewPlan64(cfg.Length)
	if err != nil {
		return nil, fmt.Errorf("response: fft plan: %w", err)
	}

	in := make([]complex128, cfg.Length)
	for i, v := range ir {
		in[i] = complex(float64(v)/float64(cfg.Amplitude), 0)
	}

	out := make([]complex128, cfg.Length)
	if err := plan.Forward(out, in); err != nil {
		return nil, fmt.Errorf("response: fft: %w", err)
	}

	bins := cfg.Length/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)
	for i := range re {
		re[i] = real(out[i])
		im[i] = imag(out[i])
	}

	mag := make([]float64, bins)
	vecmath.Magnitude(mag, re, im)

	return &Response{
		SampleRate: cfg.SampleRate,
		Length:     cfg.Length,
		Magnitude:  mag,
	}, nil
}

// Capture renders a scaled impulse through p in blocks and returns channel 0
// of the output. It returns nil for an invalid cfg.
func Capture(p Processor, cfg Config) []float32 {
	cfg, err := normalize(cfg)
	if err != nil {
		return nil
	}

	channels := make([][]float32, cfg.Channels)
	for ch := range channels {
		channels[ch] = make([]float32, cfg.Length)
		channels[ch][0] = cfg.Amplitude
	}

	block := make([][]float32, cfg.Channels)
	for start := 0; start < cfg.Length; start += cfg.BlockSize {
		end := min(start+cfg.BlockSize, cfg.Length)
		for ch := range block {
			block[ch] = channels[ch][start:end]
		}
		p.Process(block)
	}

	return channels[0]
}

func normalize(cfg Config) (Config, error) {
	if cfg.Length == 0 {
		cfg.Length = defaultLength
	}

	if cfg.BlockSize == 0 {
		cfg.BlockSize = defaultBlockSize
	}

	if cfg.Channels == 0 {
		cfg.Channels = 1
	}

	if cfg.Amplitude == 0 {
		cfg.Amplitude = defaultAmplitude
	}

	if cfg.SampleRate <= 0 || cfg.Length < 2 || cfg.BlockSize < 1 || cfg.Channels < 1 {
		return cfg, fmt.Errorf("%w: rate %g, length %d, block %d, channels %d",
			ErrInvalidConfig, cfg.SampleRate, cfg.Length, cfg.BlockSize, cfg.Channels)
	}

	return cfg, nil
}

// BinHz returns the bin spacing in Hz.
func (r *Response) BinHz() float64 {
	return r.SampleRate / float64(r.Length)
}

// At returns the linear gain at freqHz, interpolated between bins.
func (r *Response) At(freqHz float64) float64 {
	if len(r.Magnitude) == 0 {
		return 0
	}

	pos := freqHz / r.BinHz()
	if pos <= 0 {
		return r.Magnitude[0]
	}

	last := len(r.Magnitude) - 1
	if pos >= float64(last) {
		return r.Magnitude[last]
	}

	i := int(pos)
	frac := pos - float64(i)

	return r.Magnitude[i]*(1-frac) + r.Magnitude[i+1]*frac
}

// DB returns 20*log10 of the gain at freqHz.
func (r *Response) DB(freqHz float64) float64 {
	g := r.At(freqHz)
	if g <= 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(g)
}

// Cutoff returns the first frequency at or above fromHz where the response
// crosses levelDB, searching upward, with linear interpolation between bins.
// It reports false when no crossing exists.
func (r *Response) Cutoff(levelDB, fromHz float64) (float64, bool) {
	binHz := r.BinHz()
	start := max(int(fromHz/binHz), 1)

	for i := start; i+1 < len(r.Magnitude); i++ {
		a := toDB(r.Magnitude[i])
		b := toDB(r.Magnitude[i+1])
		if (a-levelDB)*(b-levelDB) > 0 || a == b {
			continue
		}

		frac := (levelDB - a) / (b - a)
		return (float64(i) + frac) * binHz, true
	}

	return 0, false
}

func toDB(g float64) float64 {
	if g <= 0 {
		return -400
	}
	return 20 * math.Log10(g)
}
