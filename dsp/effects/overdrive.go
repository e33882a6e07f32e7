package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-overdrive/dsp/core"
)

const (
	defaultOverdriveDrive  = 5.0
	defaultOverdriveGainDB = 1.0

	MinDrive  = 0.0
	MaxDrive  = 10.0
	MinGainDB = 0.0
	MaxGainDB = 10.0
)

// OverdriveOption mutates construction-time parameters.
type OverdriveOption func(*overdriveConfig) error

type overdriveConfig struct {
	drive  float32
	gainDB float32
}

// WithOverdriveDrive sets the input drive in [0, 10].
func WithOverdriveDrive(drive float32) OverdriveOption {
	return func(cfg *overdriveConfig) error {
		if drive < MinDrive || drive > MaxDrive || !core.IsFinite(float64(drive)) {
			return fmt.Errorf("overdrive drive must be in [%g, %g]: %f", MinDrive, MaxDrive, drive)
		}

		cfg.drive = drive

		return nil
	}
}

// WithOverdriveGainDB sets the post-shaper gain in [0, 10] dB.
func WithOverdriveGainDB(db float32) OverdriveOption {
	return func(cfg *overdriveConfig) error {
		if db < MinGainDB || db > MaxGainDB || !core.IsFinite(float64(db)) {
			return fmt.Errorf("overdrive gain must be in [%g, %g] dB: %f", MinGainDB, MaxGainDB, db)
		}

		cfg.gainDB = db

		return nil
	}
}

// Overdrive applies y = tanh(drive*x) * gain.
//
// As drive grows the curve flattens toward ±1, so the output plateaus at
// ±gain. Drive 0 yields silence for any input because tanh(0) = 0.
type Overdrive struct {
	drive  float32
	gainDB float32
	gain   float32
}

// NewOverdrive creates an overdrive stage with validated options.
func NewOverdrive(opts ...OverdriveOption) (*Overdrive, error) {
	cfg := overdriveConfig{
		drive:  defaultOverdriveDrive,
		gainDB: defaultOverdriveGainDB,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	o := &Overdrive{}
	o.Set(cfg.drive, cfg.gainDB)

	return o, nil
}

// Set updates drive and gain (dB) from control values. Out-of-range values
// are clamped silently, the same way the parameter store treats writes.
func (o *Overdrive) Set(drive, gainDB float32) {
	o.drive = core.Clamp(drive, MinDrive, MaxDrive)

	gainDB = core.Clamp(gainDB, MinGainDB, MaxGainDB)
	if gainDB != o.gainDB || o.gain == 0 {
		o.gainDB = gainDB
		o.gain = core.DecibelsToGain(gainDB)
	}
}

// Drive returns the current drive.
func (o *Overdrive) Drive() float32 {
	return o.drive
}

// GainDB returns the current output gain in dB.
func (o *Overdrive) GainDB() float32 {
	return o.gainDB
}

// Gain returns the current output gain as a linear multiplier.
func (o *Overdrive) Gain() float32 {
	return o.gain
}

// ProcessSample shapes one sample.
func (o *Overdrive) ProcessSample(x float32) float32 {
	return float32(math.Tanh(float64(o.drive*x))) * o.gain
}

// ProcessInPlace shapes buf in place.
func (o *Overdrive) ProcessInPlace(buf []float32) {
	for i, x := range buf {
		buf[i] = o.ProcessSample(x)
	}
}

// Process shapes every channel in place.
func (o *Overdrive) Process(channels [][]float32) {
	for _, buf := range channels {
		o.ProcessInPlace(buf)
	}
}
