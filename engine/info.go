package engine

import "github.com/cwbudde/algo-overdrive/dsp/core"

// Info describes the processor to a host.
type Info struct {
	Name         string
	Vendor       string
	Version      string
	AcceptsMIDI  bool
	ProducesMIDI bool
	IsMIDIEffect bool
	NumPrograms  int
	MaxChannels  int
}

// Info returns static processor metadata.
func (e *Engine) Info() Info {
	return Info{
		Name:        "OverDrive4",
		Vendor:      "UnderratedFX",
		Version:     "1.0.0",
		NumPrograms: 1,
		MaxChannels: core.MaxChannels,
	}
}
