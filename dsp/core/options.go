package core

import (
	"errors"
	"fmt"
)

// MaxChannels is the widest channel layout the processors accept.
const MaxChannels = 2

// ErrInvalidSpec reports a ProcessSpec that cannot be prepared.
var ErrInvalidSpec = errors.New("invalid process spec")

// ProcessSpec describes the stream a processor is prepared for.
type ProcessSpec struct {
	SampleRate   float64
	MaxBlockSize int
	NumChannels  int
}

// ProcessOption mutates a ProcessSpec.
type ProcessOption func(*ProcessSpec)

// DefaultProcessSpec returns a stereo 48 kHz spec with 512-sample blocks.
func DefaultProcessSpec() ProcessSpec {
	return ProcessSpec{
		SampleRate:   48000,
		MaxBlockSize: 512,
		NumChannels:  2,
	}
}

// WithSampleRate sets the processing sample rate.
func WithSampleRate(sampleRate float64) ProcessOption {
	return func(spec *ProcessSpec) {
		if sampleRate > 0 {
			spec.SampleRate = sampleRate
		}
	}
}

// WithBlockSize sets the maximum block size.
func WithBlockSize(blockSize int) ProcessOption {
	return func(spec *ProcessSpec) {
		if blockSize > 0 {
			spec.MaxBlockSize = blockSize
		}
	}
}

// WithChannels sets the channel count.
func WithChannels(numChannels int) ProcessOption {
	return func(spec *ProcessSpec) {
		if numChannels > 0 {
			spec.NumChannels = numChannels
		}
	}
}

// ApplyProcessOptions applies zero or more options to the default spec.
func ApplyProcessOptions(opts ...ProcessOption) ProcessSpec {
	spec := DefaultProcessSpec()
	for _, opt := range opts {
		if opt != nil {
			opt(&spec)
		}
	}
	return spec
}

// Validate reports whether the spec can be prepared.
func (s ProcessSpec) Validate() error {
	if s.SampleRate <= 0 || !IsFinite(s.SampleRate) {
		return fmt.Errorf("%w: sample rate must be > 0 and finite: %f", ErrInvalidSpec, s.SampleRate)
	}

	if s.MaxBlockSize <= 0 {
		return fmt.Errorf("%w: block size must be > 0: %d", ErrInvalidSpec, s.MaxBlockSize)
	}

	if s.NumChannels < 1 || s.NumChannels > MaxChannels {
		return fmt.Errorf("%w: channel count must be in [1, %d]: %d", ErrInvalidSpec, MaxChannels, s.NumChannels)
	}

	return nil
}
