package params

// ParameterSet is a plain copy of the five control values.
type ParameterSet struct {
	Drive      float32
	GainDB     float32
	MixPercent float32
	HPFHz      float32
	LPFHz      float32
}

// Defaults returns the values a new Store starts with.
func Defaults() ParameterSet {
	var p ParameterSet
	for _, d := range layout {
		p = p.With(d.ID, d.Default)
	}
	return p
}

// Value returns the field for id.
func (p ParameterSet) Value(id ID) (float32, bool) {
	switch id {
	case Drive:
		return p.Drive, true
	case Gain:
		return p.GainDB, true
	case Mix:
		return p.MixPercent, true
	case HPF:
		return p.HPFHz, true
	case LPF:
		return p.LPFHz, true
	default:
		return 0, false
	}
}

// With returns a copy of p with the field for id replaced. Unknown IDs
// return p unchanged.
func (p ParameterSet) With(id ID, v float32) ParameterSet {
	switch id {
	case Drive:
		p.Drive = v
	case Gain:
		p.GainDB = v
	case Mix:
		p.MixPercent = v
	case HPF:
		p.HPFHz = v
	case LPF:
		p.LPFHz = v
	}
	return p
}

// Clamped returns p with every field limited to its declared range.
func (p ParameterSet) Clamped() ParameterSet {
	for _, d := range layout {
		v, _ := p.Value(d.ID)
		p = p.With(d.ID, d.Clamp(v))
	}
	return p
}
