// Package host drives a block processor the way a plugin host does: it cuts
// arbitrary-length audio into blocks no larger than the prepared maximum and
// converts between interleaved and planar layouts.
package host

import (
	"github.com/cwbudde/algo-overdrive/dsp/buffer"
)

// Processor renders planar audio in place.
type Processor interface {
	Process(buf [][]float32)
}

// Renderer feeds audio to a Processor in blocks of at most BlockSize frames.
// It is not safe for concurrent use.
type Renderer struct {
	p           Processor
	numChannels int
	blockSize   int

	scratch *buffer.Audio
	block   [][]float32
}

// NewRenderer returns a renderer for numChannels channels and blocks of at
// most blockSize frames. Non-positive sizes are raised to 1.
func NewRenderer(p Processor, numChannels, blockSize int) *Renderer {
	numChannels = max(numChannels, 1)
	blockSize = max(blockSize, 1)

	return &Renderer{
		p:           p,
		numChannels: numChannels,
		blockSize:   blockSize,
		scratch:     buffer.New(numChannels, blockSize),
		block:       make([][]float32, numChannels),
	}
}

// NumChannels returns the channel count.
func (r *Renderer) NumChannels() int {
	return r.numChannels
}

// BlockSize returns the maximum block length in frames.
func (r *Renderer) BlockSize() int {
	return r.blockSize
}

// RenderPlanar processes channels in place, block by block. Channels
// beyond NumChannels are passed through untouched.
func (r *Renderer) RenderPlanar(channels [][]float32) {
	if len(channels) == 0 {
		return
	}

	n := len(channels[0])
	for _, ch := range channels[1:] {
		n = min(n, len(ch))
	}

	numChannels := min(len(channels), r.numChannels)
	block := r.block[:numChannels]

	for start := 0; start < n; start += r.blockSize {
		end := min(start+r.blockSize, n)
		for ch := range block {
			block[ch] = channels[ch][start:end]
		}
		r.p.Process(block)
	}
}

// RenderInterleaved processes interleaved frames in place. Trailing partial
// frames are left untouched.
func (r *Renderer) RenderInterleaved(data []float32) {
	frameLen := r.blockSize * r.numChannels

	for start := 0; start+r.numChannels <= len(data); start += frameLen {
		end := min(start+frameLen, len(data))
		chunk := data[start:end]

		r.scratch.Deinterleave(chunk)
		r.p.Process(r.scratch.Channels())
		r.scratch.Interleave(chunk[:0])
	}
}
