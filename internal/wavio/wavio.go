// Package wavio reads and writes PCM WAV files as planar float32 audio.
package wavio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-overdrive/dsp/buffer"
)

const (
	// DefaultBitDepth is used by Write when Clip.BitDepth is zero.
	DefaultBitDepth = 24

	pcmFormat = 1
)

var (
	// ErrInvalidFile is returned for input that is not a readable WAV file.
	ErrInvalidFile = errors.New("wavio: invalid wav file")
	// ErrUnsupportedBitDepth is returned for bit depths other than 16, 24 and
	// 32.
	ErrUnsupportedBitDepth = errors.New("wavio: unsupported bit depth")
)

// Clip is decoded audio with its stream format.
type Clip struct {
	Audio      *buffer.Audio
	SampleRate int
	BitDepth   int
}

// Read decodes a PCM WAV stream into planar float32 in [-1, 1).
func Read(r io.ReadSeeker) (Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Clip{}, ErrInvalidFile
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	bitDepth := int(dec.BitDepth)
	scale, err := fullScale(bitDepth)
	if err != nil {
		return Clip{}, err
	}

	numChannels := int(dec.NumChans)
	if numChannels < 1 {
		return Clip{}, fmt.Errorf("%w: %d channels", ErrInvalidFile, numChannels)
	}

	frames := len(pcm.Data) / numChannels
	out := buffer.New(numChannels, frames)
	for ch, samples := range out.Channels() {
		for i := range samples {
			samples[i] = float32(float64(pcm.Data[i*numChannels+ch]) / scale)
		}
	}

	return Clip{
		Audio:      out,
		SampleRate: int(dec.SampleRate),
		BitDepth:   bitDepth,
	}, nil
}

// ReadFile decodes the WAV file at path.
func ReadFile(path string) (Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return Clip{}, fmt.Errorf("wavio: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Write encodes clip as PCM, clipping samples to [-1, 1].
func Write(w io.WriteSeeker, clip Clip) error {
	bitDepth := clip.BitDepth
	if bitDepth == 0 {
		bitDepth = DefaultBitDepth
	}

	scale, err := fullScale(bitDepth)
	if err != nil {
		return err
	}

	if clip.Audio == nil || clip.Audio.NumChannels() == 0 || clip.SampleRate <= 0 {
		return fmt.Errorf("wavio: nothing to write (rate %d)", clip.SampleRate)
	}

	numChannels := clip.Audio.NumChannels()
	frames := clip.Audio.Len()

	data := make([]int, frames*numChannels)
	maxInt := scale - 1
	for ch, samples := range clip.Audio.Channels() {
		for i, s := range samples {
			v := float64(s) * scale
			switch {
			case v > maxInt:
				v = maxInt
			case v < -scale:
				v = -scale
			}
			data[i*numChannels+ch] = int(math.Round(v))
		}
	}

	enc := wav.NewEncoder(w, clip.SampleRate, bitDepth, numChannels, pcmFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: numChannels, SampleRate: clip.SampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wavio: encode: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("wavio: close: %w", err)
	}

	return nil
}

// WriteFile encodes clip to a new file at path.
func WriteFile(path string, clip Clip) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wavio: %w", err)
	}

	if err := Write(f, clip); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

func fullScale(bitDepth int) (float64, error) {
	switch bitDepth {
	case 16, 24, 32:
		return float64(int64(1) << (bitDepth - 1)), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}
}
