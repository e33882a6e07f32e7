package host

import (
	"encoding/binary"
	"io"
	"math"
	"sync"

	"github.com/cwbudde/algo-overdrive/dsp/buffer"
)

// Source fills planar buffers with input audio. It reports false once it is
// exhausted, after which the stream emits silence.
type Source interface {
	Fill(buf [][]float32) bool
}

// Stream is an io.Reader of processed audio encoded as interleaved
// little-endian float32, the layout oto's FormatFloat32LE expects.
type Stream struct {
	mu        sync.Mutex
	src       Source
	renderer  *Renderer
	planar    *buffer.Audio
	frames    []float32
	pending   []byte
	exhausted bool
	eofAtEnd  bool
}

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithEOF makes Read return io.EOF once the source is exhausted instead of
// producing silence forever.
func WithEOF() StreamOption {
	return func(s *Stream) {
		s.eofAtEnd = true
	}
}

// NewStream renders src through p in blocks of blockSize frames.
func NewStream(p Processor, src Source, numChannels, blockSize int, opts ...StreamOption) *Stream {
	r := NewRenderer(p, numChannels, blockSize)

	s := &Stream{
		src:      src,
		renderer: r,
		planar:   buffer.New(r.NumChannels(), r.BlockSize()),
		frames:   make([]float32, 0, r.NumChannels()*r.BlockSize()),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for n < len(p) {
		if len(s.pending) == 0 {
			if s.exhausted && s.eofAtEnd {
				break
			}
			s.renderBlock()
		}

		c := copy(p[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}

	if n == 0 && s.exhausted && s.eofAtEnd {
		return 0, io.EOF
	}

	return n, nil
}

func (s *Stream) renderBlock() {
	s.planar.Resize(s.renderer.BlockSize())
	s.planar.Zero()

	if !s.exhausted && !s.src.Fill(s.planar.Channels()) {
		s.exhausted = true
		if s.eofAtEnd {
			return
		}
	}

	s.renderer.RenderPlanar(s.planar.Channels())
	s.frames = s.planar.Interleave(s.frames)

	need := len(s.frames) * 4
	if cap(s.pending) < need {
		s.pending = make([]byte, need)
	}
	s.pending = s.pending[:need]

	for i, v := range s.frames {
		binary.LittleEndian.PutUint32(s.pending[i*4:], math.Float32bits(v))
	}
}
