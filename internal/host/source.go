package host

import (
	"math"

	"github.com/cwbudde/algo-overdrive/dsp/buffer"
)

// Loop replays a clip forever.
type Loop struct {
	clip *buffer.Audio
	pos  int
}

// NewLoop returns a Source that loops clip.
func NewLoop(clip *buffer.Audio) *Loop {
	return &Loop{clip: clip}
}

// Fill implements Source. Output channels beyond the clip's repeat its last
// channel, so a mono clip feeds both sides of a stereo stream.
func (l *Loop) Fill(buf [][]float32) bool {
	n := l.clip.Len()
	if n == 0 || l.clip.NumChannels() == 0 {
		return false
	}

	last := l.clip.NumChannels() - 1
	for ch, out := range buf {
		src := l.clip.Channel(min(ch, last))
		pos := l.pos
		for i := range out {
			out[i] = src[pos]
			pos++
			if pos == n {
				pos = 0
			}
		}
	}

	if len(buf) > 0 {
		l.pos = (l.pos + len(buf[0])) % n
	}

	return true
}

// Once plays a clip a single time and then reports exhaustion.
type Once struct {
	clip *buffer.Audio
	pos  int
}

// NewOnce returns a Source that plays clip once.
func NewOnce(clip *buffer.Audio) *Once {
	return &Once{clip: clip}
}

// Fill implements Source. The block that runs past the end is zero padded.
func (o *Once) Fill(buf [][]float32) bool {
	n := o.clip.Len()
	if o.pos >= n || o.clip.NumChannels() == 0 {
		return false
	}

	last := o.clip.NumChannels() - 1
	copied := 0
	for ch, out := range buf {
		src := o.clip.Channel(min(ch, last))
		copied = copy(out, src[o.pos:])
		for i := copied; i < len(out); i++ {
			out[i] = 0
		}
	}

	o.pos += copied

	return true
}

// Tone is an endless sine source.
type Tone struct {
	amplitude float64
	step      float64
	phase     float64
}

// NewTone returns a sine of freqHz at sampleRate with the given peak
// amplitude.
func NewTone(freqHz, sampleRate, amplitude float64) *Tone {
	return &Tone{
		amplitude: amplitude,
		step:      2 * math.Pi * freqHz / sampleRate,
	}
}

// Fill implements Source. Every channel gets the same signal.
func (t *Tone) Fill(buf [][]float32) bool {
	if len(buf) == 0 {
		return true
	}

	phase := t.phase
	for i := range buf[0] {
		v := float32(t.amplitude * math.Sin(phase))
		for _, ch := range buf {
			ch[i] = v
		}
		phase += t.step
	}

	t.phase = math.Mod(phase, 2*math.Pi)

	return true
}
