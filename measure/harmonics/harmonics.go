// Package harmonics measures the harmonic content of a rendered tone:
// fundamental level, per-harmonic ratios, THD and the odd/even balance that
// distinguishes symmetric clipping from asymmetric clipping.
package harmonics

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-overdrive/dsp/core"
	"github.com/cwbudde/algo-overdrive/dsp/window"
)

const (
	defaultMaxHarmonics = 9
	defaultUpperHz      = 20000.0
)

var (
	// ErrInvalidConfig is returned for a non-positive sample rate, FFT size
	// or fundamental.
	ErrInvalidConfig = errors.New("harmonics: invalid config")
	// ErrShortSignal is returned when fewer samples than FFTSize are given.
	ErrShortSignal = errors.New("harmonics: signal shorter than FFT size")
)

// Config holds analysis parameters.
type Config struct {
	SampleRate float64
	// FFTSize must be a power of two accepted by algo-fft.
	FFTSize     int
	Fundamental float64
	// MaxHarmonics counts harmonics from the 2nd upwards. Zero selects 9.
	MaxHarmonics int
	// UpperFreq bounds the harmonic search. Zero selects 20 kHz or Nyquist.
	UpperFreq float64
	// CaptureBins is the half-width of the energy sum around each peak.
	// Zero derives it from the window.
	CaptureBins int
	// Window defaults to the zero value, TypeRectangular, which is only
	// accurate for bin-centred tones; use TypeFlatTop or TypeBlackman
	// otherwise.
	Window window.Type
}

// Result holds harmonic measurements. Levels are linear ratios to the
// fundamental.
type Result struct {
	Fundamental      float64
	FundamentalLevel float64
	// Amplitude is the estimated peak amplitude of the fundamental in the
	// time domain, corrected for the window's coherent gain and ENBW.
	Amplitude float64
	// Harmonics[i] is the ratio of harmonic i+2 to the fundamental.
	Harmonics []float64
	THD       float64
	THDdB     float64
	Odd       float64
	Even      float64
}

// Harmonic returns the ratio of harmonic k (k >= 2) or 0 when it was not
// measured.
func (r Result) Harmonic(k int) float64 {
	if k < 2 || k-2 >= len(r.Harmonics) {
		return 0
	}
	return r.Harmonics[k-2]
}

// OddDominant reports whether odd harmonics carry more energy than even ones.
func (r Result) OddDominant() bool {
	return r.Odd > r.Even
}

// Analyzer reuses one FFT plan and window across measurements.
type Analyzer struct {
	cfg    Config
	plan   *algofft.Plan[complex128]
	coeffs []float64
	// amplitudeScale maps lobe energy to peak amplitude.
	amplitudeScale float64

	frame    []float64
	in, out  []complex128
	powerBin []float64
}

// NewAnalyzer validates cfg and builds the FFT plan.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if cfg.SampleRate <= 0 || cfg.FFTSize < 2 || cfg.Fundamental <= 0 {
		return nil, fmt.Errorf("%w: rate %g, size %d, fundamental %g",
			ErrInvalidConfig, cfg.SampleRate, cfg.FFTSize, cfg.Fundamental)
	}

	if cfg.Fundamental >= cfg.SampleRate/2 {
		return nil, fmt.Errorf("%w: fundamental %g at or above Nyquist", ErrInvalidConfig, cfg.Fundamental)
	}

	if cfg.MaxHarmonics <= 0 {
		cfg.MaxHarmonics = defaultMaxHarmonics
	}

	if cfg.UpperFreq <= 0 {
		cfg.UpperFreq = defaultUpperHz
	}
	cfg.UpperFreq = math.Min(cfg.UpperFreq, cfg.SampleRate/2)

	if cfg.CaptureBins <= 0 {
		cfg.CaptureBins = captureBinsFor(cfg.Window)
	}

	coeffs := window.Generate(cfg.Window, cfg.FFTSize, window.WithPeriodic())

	scale, err := amplitudeScale(coeffs)
	if err != nil {
		return nil, fmt.Errorf("%w: window %s: %w", ErrInvalidConfig, cfg.Window, err)
	}

	plan, err := algofft.NewPlan64(cfg.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("harmonics: fft plan: %w", err)
	}

	return &Analyzer{
		cfg:            cfg,
		plan:           plan,
		coeffs:         coeffs,
		amplitudeScale: scale,
		frame:    make([]float64, cfg.FFTSize),
		in:       make([]complex128, cfg.FFTSize),
		out:      make([]complex128, cfg.FFTSize),
		powerBin: make([]float64, cfg.FFTSize/2+1),
	}, nil
}

// Analyze measures the last FFTSize samples of signal, which skips any
// filter settling at the start of a render.
func (a *Analyzer) Analyze(signal []float32) (Result, error) {
	n := a.cfg.FFTSize
	if len(signal) < n {
		return Result{}, fmt.Errorf("%w: %d < %d", ErrShortSignal, len(signal), n)
	}

	a.frame = core.ToFloat64(a.frame, signal[len(signal)-n:])
	if err := window.ApplyCoefficientsInPlace(a.frame, a.coeffs); err != nil {
		return Result{}, fmt.Errorf("harmonics: %w", err)
	}

	for i, v := range a.frame {
		a.in[i] = complex(v, 0)
	}

	if err := a.plan.Forward(a.out, a.in); err != nil {
		return Result{}, fmt.Errorf("harmonics: fft: %w", err)
	}

	for i := range a.powerBin {
		x := a.out[i]
		a.powerBin[i] = real(x)*real(x) + imag(x)*imag(x)
	}

	return a.measure(), nil
}

func (a *Analyzer) measure() Result {
	cfg := a.cfg
	binHz := cfg.SampleRate / float64(cfg.FFTSize)
	maxBin := len(a.powerBin) - 1

	fundamentalBin := a.peakNear(int(math.Round(cfg.Fundamental/binHz)), cfg.CaptureBins)
	fundamental := a.level(fundamentalBin, cfg.CaptureBins)

	res := Result{
		Fundamental:      float64(fundamentalBin) * binHz,
		FundamentalLevel: fundamental,
		Amplitude:        fundamental * a.amplitudeScale,
		THDdB:            math.Inf(-1),
	}
	if fundamental <= 0 {
		return res
	}

	var total, odd, even float64
	for k := 2; k < cfg.MaxHarmonics+2; k++ {
		freq := float64(k) * res.Fundamental
		if freq > cfg.UpperFreq {
			break
		}

		bin := int(math.Round(freq / binHz))
		if bin > maxBin {
			break
		}

		ratio := a.level(bin, cfg.CaptureBins) / fundamental
		res.Harmonics = append(res.Harmonics, ratio)

		total += ratio * ratio
		if k%2 == 0 {
			even += ratio * ratio
		} else {
			odd += ratio * ratio
		}
	}

	res.THD = math.Sqrt(total)
	res.Odd = math.Sqrt(odd)
	res.Even = math.Sqrt(even)
	if res.THD > 0 {
		res.THDdB = 20 * math.Log10(res.THD)
	}

	return res
}

// peakNear returns the strongest bin within span of center.
func (a *Analyzer) peakNear(center, span int) int {
	lo := max(center-span, 1)
	hi := min(center+span, len(a.powerBin)-1)

	best := clampInt(center, lo, hi)
	for i := lo; i <= hi; i++ {
		if a.powerBin[i] > a.powerBin[best] {
			best = i
		}
	}

	return best
}

// level returns the RMS-equivalent amplitude of the lobe around bin.
func (a *Analyzer) level(bin, span int) float64 {
	lo := max(bin-span, 0)
	hi := min(bin+span, len(a.powerBin)-1)

	sum := 0.0
	for i := lo; i <= hi; i++ {
		sum += a.powerBin[i]
	}

	return math.Sqrt(sum)
}

// amplitudeScale returns the factor turning the square root of a captured
// lobe's energy into peak amplitude. A sinusoid of peak amplitude A puts
// N*A²*sum(w²)/4 into the positive-frequency bins, and
// N*sum(w²) = ENBW*(N*CG)².
func amplitudeScale(coeffs []float64) (float64, error) {
	cg, err := window.CoherentGain(coeffs)
	if err != nil {
		return 0, err
	}

	enbw, err := window.EquivalentNoiseBandwidth(coeffs)
	if err != nil {
		return 0, err
	}

	return 2 / (float64(len(coeffs)) * cg * math.Sqrt(enbw)), nil
}

func captureBinsFor(t window.Type) int {
	switch t {
	case window.TypeRectangular:
		return 1
	case window.TypeHann:
		return 2
	case window.TypeBlackman:
		return 3
	case window.TypeFlatTop:
		return 5
	default:
		return 2
	}
}

func clampInt(val, lo, hi int) int {
	if val < lo {
		return lo
	}

	if val > hi {
		return hi
	}

	return val
}
