package buffer

import "github.com/cwbudde/algo-overdrive/dsp/core"

// Audio holds one float32 slice per channel, all of the same length.
type Audio struct {
	channels [][]float32
	length   int
}

// New returns a zero-filled Audio buffer with the given shape.
// Negative dimensions are treated as zero.
func New(numChannels, length int) *Audio {
	if numChannels < 0 {
		numChannels = 0
	}
	if length < 0 {
		length = 0
	}

	a := &Audio{channels: make([][]float32, numChannels), length: length}
	for ch := range a.channels {
		a.channels[ch] = make([]float32, length)
	}
	return a
}

// FromChannels wraps existing channel slices without copying samples.
// Every channel is trimmed to the length of the shortest one.
func FromChannels(channels [][]float32) *Audio {
	length := 0
	for i, ch := range channels {
		if i == 0 || len(ch) < length {
			length = len(ch)
		}
	}

	trimmed := make([][]float32, len(channels))
	for i, ch := range channels {
		trimmed[i] = ch[:length]
	}
	return &Audio{channels: trimmed, length: length}
}

// Channels returns the channel slices, each trimmed to Len().
func (a *Audio) Channels() [][]float32 {
	return a.channels
}

// Channel returns the samples of one channel.
func (a *Audio) Channel(ch int) []float32 {
	return a.channels[ch]
}

// NumChannels returns the channel count.
func (a *Audio) NumChannels() int {
	return len(a.channels)
}

// Len returns the number of samples per channel.
func (a *Audio) Len() int {
	return a.length
}

// Cap returns the smallest per-channel capacity.
func (a *Audio) Cap() int {
	c := 0
	for i, ch := range a.channels {
		if i == 0 || cap(ch) < c {
			c = cap(ch)
		}
	}
	return c
}

// Resize sets the per-channel length to n, reusing existing capacity when
// possible. Newly exposed samples are zeroed.
func (a *Audio) Resize(n int) {
	if n < 0 {
		n = 0
	}

	for i, ch := range a.channels {
		oldLen := len(ch)
		ch = core.EnsureLen(ch, n)
		if n > oldLen {
			core.Zero(ch[oldLen:])
		}
		a.channels[i] = ch
	}

	a.length = n
}

// CopyFrom copies src into a, resizing to the length of src. Only the first
// min(NumChannels, len(src)) channels are copied. It does not allocate when
// the existing capacity suffices.
func (a *Audio) CopyFrom(src [][]float32) {
	n := 0
	for i, ch := range src {
		if i == 0 || len(ch) < n {
			n = len(ch)
		}
	}

	a.Resize(n)

	for ch := 0; ch < len(a.channels) && ch < len(src); ch++ {
		core.CopyInto(a.channels[ch], src[ch][:n])
	}
}

// Zero sets all samples to 0.
func (a *Audio) Zero() {
	for _, ch := range a.channels {
		core.Zero(ch)
	}
}

// Release drops the channel storage. The buffer keeps its channel count with
// zero length.
func (a *Audio) Release() {
	for i := range a.channels {
		a.channels[i] = nil
	}
	a.length = 0
}

// Copy returns a deep copy of the buffer.
func (a *Audio) Copy() *Audio {
	out := New(len(a.channels), a.length)
	for ch := range a.channels {
		core.CopyInto(out.channels[ch], a.channels[ch])
	}
	return out
}

// Interleave writes the frames of a into dst as ch0,ch1,ch0,ch1,... and
// returns dst resized to Len()*NumChannels().
func (a *Audio) Interleave(dst []float32) []float32 {
	numChannels := len(a.channels)
	dst = core.EnsureLen(dst, a.length*numChannels)

	for ch, samples := range a.channels {
		for i := 0; i < a.length; i++ {
			dst[i*numChannels+ch] = samples[i]
		}
	}
	return dst
}

// Deinterleave loads interleaved frames from src into a, resizing to
// len(src)/NumChannels() samples. Trailing partial frames are ignored.
func (a *Audio) Deinterleave(src []float32) {
	numChannels := len(a.channels)
	if numChannels == 0 {
		return
	}

	frames := len(src) / numChannels
	a.Resize(frames)

	for ch, samples := range a.channels {
		for i := 0; i < frames; i++ {
			samples[i] = src[i*numChannels+ch]
		}
	}
}
