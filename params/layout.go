package params

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-overdrive/dsp/core"
)

// ID names a parameter. The string values are stable and used in persisted
// state.
type ID string

const (
	Drive ID = "DRIVE"
	Gain  ID = "GAIN"
	Mix   ID = "MIX"
	HPF   ID = "HPF_FREQ"
	LPF   ID = "LPF_FREQ"
)

const numParams = 5

// ErrUnknownParameter is returned for IDs outside the layout.
var ErrUnknownParameter = errors.New("unknown parameter")

// Descriptor describes one parameter.
type Descriptor struct {
	ID       ID
	Name     string
	Unit     string
	Min      float32
	Max      float32
	Default  float32
	Interval float32
	// Midpoint is the value shown at half knob travel. Zero means linear.
	Midpoint float32
	Decimals int
}

var layout = [numParams]Descriptor{
	{ID: Drive, Name: "Drive", Min: 0, Max: 10, Default: 5, Interval: 0.5, Decimals: 1},
	{ID: Gain, Name: "Gain", Unit: "dB", Min: 0, Max: 10, Default: 1, Interval: 0.1, Decimals: 1},
	{ID: Mix, Name: "Mix", Unit: "%", Min: 0, Max: 100, Default: 50, Interval: 0.5, Decimals: 1},
	{ID: HPF, Name: "High-Pass Frequency", Unit: "Hz", Min: 20, Max: 20000, Default: 20, Interval: 10, Midpoint: 500},
	{ID: LPF, Name: "Low-Pass Frequency", Unit: "Hz", Min: 20, Max: 20000, Default: 20000, Interval: 10, Midpoint: 500},
}

// Layout returns the descriptors in their canonical order.
func Layout() []Descriptor {
	out := make([]Descriptor, numParams)
	copy(out, layout[:])
	return out
}

// Lookup returns the descriptor for id.
func Lookup(id ID) (Descriptor, bool) {
	idx := indexOf(id)
	if idx < 0 {
		return Descriptor{}, false
	}
	return layout[idx], true
}

func indexOf(id ID) int {
	switch id {
	case Drive:
		return 0
	case Gain:
		return 1
	case Mix:
		return 2
	case HPF:
		return 3
	case LPF:
		return 4
	default:
		return -1
	}
}

// Clamp limits v to [Min, Max].
func (d Descriptor) Clamp(v float32) float32 {
	return core.Clamp(v, d.Min, d.Max)
}

// Snap clamps v and rounds it to the nearest display interval.
func (d Descriptor) Snap(v float32) float32 {
	return d.Clamp(core.Quantize(d.Clamp(v), d.Interval))
}

// Normalize maps v linearly from [Min, Max] to [0, 1].
func (d Descriptor) Normalize(v float32) float64 {
	if d.Max <= d.Min {
		return 0
	}
	return (float64(d.Clamp(v)) - float64(d.Min)) / (float64(d.Max) - float64(d.Min))
}

// Denormalize maps p in [0, 1] linearly back to [Min, Max].
func (d Descriptor) Denormalize(p float64) float32 {
	p = math.Min(math.Max(p, 0), 1)
	return d.Clamp(float32(float64(d.Min) + p*(float64(d.Max)-float64(d.Min))))
}

func (d Descriptor) skew() float64 {
	if d.Midpoint <= d.Min || d.Midpoint >= d.Max {
		return 1
	}
	return math.Log(0.5) / math.Log((float64(d.Midpoint)-float64(d.Min))/(float64(d.Max)-float64(d.Min)))
}

// Position maps v to knob travel in [0, 1], honoring the skew mid-point.
func (d Descriptor) Position(v float32) float64 {
	n := d.Normalize(v)
	if skew := d.skew(); skew != 1 && n > 0 {
		return math.Pow(n, skew)
	}
	return n
}

// FromPosition maps knob travel in [0, 1] to a value.
func (d Descriptor) FromPosition(p float64) float32 {
	p = math.Min(math.Max(p, 0), 1)
	if skew := d.skew(); skew != 1 && p > 0 {
		p = math.Exp(math.Log(p) / skew)
	}
	return d.Denormalize(p)
}

// Format renders v the way the control surface displays it.
func (d Descriptor) Format(v float32) string {
	s := strconv.FormatFloat(float64(v), 'f', d.Decimals, 32)
	if d.Unit == "" {
		return s
	}
	return s + " " + d.Unit
}

// Parse reads a displayed value back. A trailing unit is optional and
// case-insensitive. The result is clamped.
func (d Descriptor) Parse(s string) (float32, error) {
	text := strings.TrimSpace(s)
	if d.Unit != "" && len(text) >= len(d.Unit) &&
		strings.EqualFold(text[len(text)-len(d.Unit):], d.Unit) {
		text = strings.TrimSpace(text[:len(text)-len(d.Unit)])
	}

	v, err := strconv.ParseFloat(text, 32)
	if err != nil {
		return 0, fmt.Errorf("params: parse %s value %q: %w", d.ID, s, err)
	}
	if math.IsNaN(v) {
		return 0, fmt.Errorf("params: parse %s value %q: not a number", d.ID, s)
	}

	return d.Clamp(float32(v)), nil
}
