// Package level computes peak, RMS, DC and crest factor of float32 audio,
// either in one call or accumulated block by block with a Meter.
package level

import "math"

// Level holds time-domain level statistics.
type Level struct {
	Samples       int
	Peak          float64
	PeakDB        float64
	RMS           float64
	RMSDB         float64
	DC            float64
	CrestFactorDB float64
	ZeroCrossings int
	// Clipped counts samples with magnitude at or above full scale.
	Clipped int
}

func ampToDB(value float64) float64 {
	a := math.Abs(value)
	if a == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(a)
}

// Calculate measures signal in a single pass.
func Calculate(signal []float32) Level {
	var m Meter
	m.Update(signal)
	return m.Result()
}

// Meter accumulates level statistics across blocks. Results are identical
// to Calculate over the concatenated blocks.
type Meter struct {
	n          int
	sum        float64
	sumSq      float64
	peak       float64
	crossings  int
	clipped    int
	lastSample float32
}

// Update adds a block of samples.
func (m *Meter) Update(samples []float32) {
	for _, s := range samples {
		x := float64(s)

		m.sum += x
		m.sumSq += x * x
		if a := math.Abs(x); a > m.peak {
			m.peak = a
		}
		if math.Abs(x) >= 1 {
			m.clipped++
		}
		if m.n > 0 && float64(m.lastSample)*x < 0 {
			m.crossings++
		}

		m.lastSample = s
		m.n++
	}
}

// Result returns the statistics so far. dB fields are -Inf for silence.
func (m *Meter) Result() Level {
	if m.n == 0 {
		return Level{
			PeakDB:        math.Inf(-1),
			RMSDB:         math.Inf(-1),
			CrestFactorDB: math.Inf(-1),
		}
	}

	nf := float64(m.n)
	rms := math.Sqrt(m.sumSq / nf)

	crest := 0.0
	if rms > 0 {
		crest = 20 * math.Log10(m.peak/rms)
	}

	return Level{
		Samples:       m.n,
		Peak:          m.peak,
		PeakDB:        ampToDB(m.peak),
		RMS:           rms,
		RMSDB:         ampToDB(rms),
		DC:            m.sum / nf,
		CrestFactorDB: crest,
		ZeroCrossings: m.crossings,
		Clipped:       m.clipped,
	}
}

// Reset clears the accumulated data.
func (m *Meter) Reset() {
	*m = Meter{}
}
