// Package state serializes parameter values into the opaque blob a host
// stores with a session, and restores them.
//
// Layout (little endian):
//
//	magic    [4]byte  "ODRV"
//	version  uint16
//	count    uint16
//	count × { idLen uint8, id [idLen]byte, bits uint32 }
//
// Values are stored as raw float32 bits, so a round trip is bit-identical.
// Unknown IDs are skipped and missing IDs keep their defaults, which lets
// older and newer layouts load each other.
package state

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-overdrive/params"
)

const (
	magic   = "ODRV"
	version = uint16(1)

	maxEntries = 64
)

// ErrMalformedState is returned when a blob cannot be decoded.
var ErrMalformedState = errors.New("malformed state")

// Serialize encodes p.
func Serialize(p params.ParameterSet) []byte {
	layout := params.Layout()

	var buf bytes.Buffer
	buf.Grow(len(magic) + 4 + len(layout)*16)
	buf.WriteString(magic)

	_ = binary.Write(&buf, binary.LittleEndian, version)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(layout)))

	for _, d := range layout {
		v, _ := p.Value(d.ID)
		buf.WriteByte(byte(len(d.ID)))
		buf.WriteString(string(d.ID))
		_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(v))
	}

	return buf.Bytes()
}

// Deserialize decodes a blob written by Serialize. Values are clamped to
// their declared ranges; NaN values keep the default.
func Deserialize(data []byte) (params.ParameterSet, error) {
	r := bytes.NewReader(data)

	header := make([]byte, len(magic))
	if _, err := io.ReadFull(r, header); err != nil {
		return params.ParameterSet{}, fmt.Errorf("%w: header: %w", ErrMalformedState, err)
	}
	if string(header) != magic {
		return params.ParameterSet{}, fmt.Errorf("%w: bad magic %q", ErrMalformedState, header)
	}

	var ver, count uint16
	if err := binary.Read(r, binary.LittleEndian, &ver); err != nil {
		return params.ParameterSet{}, fmt.Errorf("%w: version: %w", ErrMalformedState, err)
	}
	if ver == 0 || ver > version {
		return params.ParameterSet{}, fmt.Errorf("%w: unsupported version %d", ErrMalformedState, ver)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return params.ParameterSet{}, fmt.Errorf("%w: entry count: %w", ErrMalformedState, err)
	}
	if count > maxEntries {
		return params.ParameterSet{}, fmt.Errorf("%w: %d entries exceeds limit %d", ErrMalformedState, count, maxEntries)
	}

	p := params.Defaults()
	for i := 0; i < int(count); i++ {
		idLen, err := r.ReadByte()
		if err != nil {
			return params.ParameterSet{}, fmt.Errorf("%w: entry %d: %w", ErrMalformedState, i, err)
		}

		id := make([]byte, idLen)
		if _, err := io.ReadFull(r, id); err != nil {
			return params.ParameterSet{}, fmt.Errorf("%w: entry %d id: %w", ErrMalformedState, i, err)
		}

		var bits uint32
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return params.ParameterSet{}, fmt.Errorf("%w: entry %d value: %w", ErrMalformedState, i, err)
		}

		d, ok := params.Lookup(params.ID(id))
		if !ok {
			continue
		}

		v := math.Float32frombits(bits)
		if math.IsNaN(float64(v)) {
			continue
		}
		p = p.With(d.ID, d.Clamp(v))
	}

	if r.Len() != 0 {
		return params.ParameterSet{}, fmt.Errorf("%w: %d trailing bytes", ErrMalformedState, r.Len())
	}

	return p, nil
}

// Restore decodes data, falling back to the defaults when it is malformed.
func Restore(data []byte) params.ParameterSet {
	p, err := Deserialize(data)
	if err != nil {
		logFallback("Restore", len(data), err)
		return params.Defaults()
	}

	return p
}

// Save encodes the current contents of s.
func Save(s *params.Store) []byte {
	return Serialize(s.Snapshot())
}

// Load restores data into s. Malformed data resets s to the defaults and
// the decode error is returned for the caller's information.
func Load(s *params.Store, data []byte) error {
	p, err := Deserialize(data)
	if err != nil {
		logFallback("Load", len(data), err)
		s.Reset()

		return err
	}

	s.Apply(p)

	return nil
}

func logFallback(function string, size int, err error) {
	logrus.WithFields(logrus.Fields{
		"function": function,
		"bytes":    size,
		"error":    err.Error(),
	}).Warn("Discarding unreadable plugin state, using defaults")
}
