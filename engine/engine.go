package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-overdrive/dsp/buffer"
	"github.com/cwbudde/algo-overdrive/dsp/core"
	"github.com/cwbudde/algo-overdrive/dsp/effects"
	"github.com/cwbudde/algo-overdrive/dsp/filter/svf"
	"github.com/cwbudde/algo-overdrive/params"
)

const (
	// Resonance gives a gentle knee instead of a resonant peak.
	Resonance = 0.7

	initialHighPassCutoff = 20.0
	initialLowPassCutoff  = 20000.0

	// CutoffStep is the detent applied to both filter cutoffs.
	CutoffStep = 10.0
)

// Processor is the narrow host-facing contract.
type Processor interface {
	Prepare(sampleRate float64, blockSize, numChannels int) error
	Process(buf [][]float32)
	Release()
}

// Stats counts processed and skipped buffers since construction.
type Stats struct {
	ProcessedBuffers uint64
	SkippedBuffers   uint64
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithStore shares an existing parameter store instead of creating one.
func WithStore(store *params.Store) Option {
	return func(e *Engine) {
		if store != nil {
			e.store = store
		}
	}
}

// Engine is the overdrive processor. It is not safe for concurrent use
// except for State, Stats and the parameter store.
type Engine struct {
	store *params.Store
	log   logrus.FieldLogger

	state atomic.Int32
	spec  core.ProcessSpec

	overdrive *effects.Overdrive
	mixer     *effects.Mixer
	highPass  *svf.Filter
	lowPass   *svf.Filter
	wet       *buffer.Audio

	highPassCutoff float32
	lowPassCutoff  float32

	processed atomic.Uint64
	skipped   atomic.Uint64
}

var _ Processor = (*Engine)(nil)

// New creates an unprepared engine with a default parameter store.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:      logrus.StandardLogger(),
		mixer:    effects.NewMixer(0),
		highPass: svf.New(svf.Highpass),
		lowPass:  svf.New(svf.Lowpass),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	if e.store == nil {
		e.store = params.NewStore()
	}

	e.overdrive = &effects.Overdrive{}
	e.overdrive.Set(e.store.Drive(), e.store.GainDB())

	return e
}

// Params returns the parameter store the engine reads from.
func (e *Engine) Params() *params.Store {
	return e.store
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Spec returns the spec of the last successful Prepare.
func (e *Engine) Spec() core.ProcessSpec {
	return e.spec
}

// Stats returns buffer counters.
func (e *Engine) Stats() Stats {
	return Stats{
		ProcessedBuffers: e.processed.Load(),
		SkippedBuffers:   e.skipped.Load(),
	}
}

// Prepare sizes filter state and the wet buffer for the stream and resets
// all filter memory. It may be called again at any time the host is not
// processing.
func (e *Engine) Prepare(sampleRate float64, blockSize, numChannels int) error {
	return e.PrepareSpec(core.ProcessSpec{
		SampleRate:   sampleRate,
		MaxBlockSize: blockSize,
		NumChannels:  numChannels,
	})
}

// PrepareSpec is Prepare taking the stream format as a core.ProcessSpec.
func (e *Engine) PrepareSpec(spec core.ProcessSpec) error {
	if err := spec.Validate(); err != nil {
		e.log.WithFields(logrus.Fields{
			"function":   "Prepare",
			"sampleRate": spec.SampleRate,
			"blockSize":  spec.MaxBlockSize,
			"channels":   spec.NumChannels,
			"error":      err.Error(),
		}).Warn("Rejected stream format")

		return fmt.Errorf("engine: prepare: %w", err)
	}

	for _, f := range []*svf.Filter{e.highPass, e.lowPass} {
		if err := f.Prepare(spec); err != nil {
			return fmt.Errorf("engine: prepare %s: %w", f.Type(), err)
		}
		f.SetResonance(Resonance)
	}

	e.highPassCutoff = initialHighPassCutoff
	e.lowPassCutoff = initialLowPassCutoff
	e.highPass.SetCutoffFrequency(e.highPassCutoff)
	e.lowPass.SetCutoffFrequency(e.lowPassCutoff)

	e.wet = buffer.New(spec.NumChannels, spec.MaxBlockSize)
	e.spec = spec
	e.state.Store(int32(Prepared))

	e.log.WithFields(logrus.Fields{
		"function":   "Prepare",
		"sampleRate": spec.SampleRate,
		"blockSize":  spec.MaxBlockSize,
		"channels":   spec.NumChannels,
	}).Info("Engine prepared")

	return nil
}

// Process renders buf in place. Only the first min(len(buf), NumChannels)
// channels are processed; extra channels are left untouched.
func (e *Engine) Process(buf [][]float32) {
	switch e.State() {
	case Prepared:
		e.state.Store(int32(Processing))
	case Processing:
	default:
		e.skipped.Add(1)
		return
	}

	numChannels := len(buf)
	if numChannels > e.spec.NumChannels {
		numChannels = e.spec.NumChannels
	}
	dry := buf[:numChannels]

	e.applyParameters()

	e.wet.CopyFrom(dry)
	wet := e.wet.Channels()[:numChannels]

	e.overdrive.Process(wet)
	e.highPass.Process(wet)
	e.lowPass.Process(wet)
	e.mixer.Blend(dry, wet)

	e.processed.Add(1)
}

// applyParameters reads the store once for the whole buffer.
func (e *Engine) applyParameters() {
	e.overdrive.Set(e.store.Drive(), e.store.GainDB())
	e.mixer.SetMixPercent(e.store.MixPercent())

	if hz := QuantizeCutoff(e.store.HPF()); hz != e.highPassCutoff {
		e.highPassCutoff = hz
		e.highPass.SetCutoffFrequency(hz)
	}

	if hz := QuantizeCutoff(e.store.LPF()); hz != e.lowPassCutoff {
		e.lowPassCutoff = hz
		e.lowPass.SetCutoffFrequency(hz)
	}
}

// Cutoffs returns the quantized high-pass and low-pass cutoffs currently
// applied to the filters.
func (e *Engine) Cutoffs() (highPass, lowPass float32) {
	return e.highPassCutoff, e.lowPassCutoff
}

// QuantizeCutoff snaps hz to the nearest multiple of CutoffStep, ties away
// from zero (525 → 530).
func QuantizeCutoff(hz float32) float32 {
	return core.Quantize(hz, CutoffStep)
}

// Release clears filter state and drops the wet buffer. It is safe to call
// more than once, and Prepare may follow it.
func (e *Engine) Release() {
	if e.State() == Released {
		return
	}

	e.highPass.Release()
	e.lowPass.Release()
	if e.wet != nil {
		e.wet.Release()
		e.wet = nil
	}

	e.state.Store(int32(Released))

	stats := e.Stats()
	e.log.WithFields(logrus.Fields{
		"function":  "Release",
		"processed": stats.ProcessedBuffers,
		"skipped":   stats.SkippedBuffers,
	}).Info("Engine released")
}

// LatencySamples reports the processing latency. The signal path has none.
func (e *Engine) LatencySamples() int {
	return 0
}

// TailSeconds reports how long output continues after input stops.
func (e *Engine) TailSeconds() float64 {
	return 0
}
