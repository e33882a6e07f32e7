package params

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// Listener is notified after a parameter write with the stored (clamped)
// value. It runs on the writing goroutine.
type Listener func(id ID, value float32)

type subscription struct {
	id int
	fn Listener
}

// Store is the lock-free parameter holder shared by the control and audio
// contexts.
type Store struct {
	values [numParams]atomic.Uint32

	mu        sync.Mutex
	listeners []subscription
	nextSub   int
}

// NewStore returns a store initialized to Defaults.
func NewStore() *Store {
	s := &Store{}
	s.Reset()
	return s
}

func (s *Store) load(idx int) float32 {
	return math.Float32frombits(s.values[idx].Load())
}

func (s *Store) store(idx int, v float32) {
	s.values[idx].Store(math.Float32bits(v))
}

// Set clamps value to the parameter's range and stores it. NaN writes are
// dropped. Unknown IDs return ErrUnknownParameter.
func (s *Store) Set(id ID, value float32) error {
	idx := indexOf(id)
	if idx < 0 {
		return fmt.Errorf("params: set %q: %w", id, ErrUnknownParameter)
	}

	if math.IsNaN(float64(value)) {
		return nil
	}

	v := layout[idx].Clamp(value)
	s.store(idx, v)
	s.notify(id, v)

	return nil
}

// Get returns the latest stored value, or 0 for unknown IDs.
func (s *Store) Get(id ID) float32 {
	idx := indexOf(id)
	if idx < 0 {
		return 0
	}
	return s.load(idx)
}

// SetNormalized stores a host-automation value in [0, 1].
func (s *Store) SetNormalized(id ID, p float64) error {
	d, ok := Lookup(id)
	if !ok {
		return fmt.Errorf("params: set %q: %w", id, ErrUnknownParameter)
	}
	if math.IsNaN(p) {
		return nil
	}
	return s.Set(id, d.Denormalize(p))
}

// Normalized returns the current value of id mapped to [0, 1].
func (s *Store) Normalized(id ID) float64 {
	d, ok := Lookup(id)
	if !ok {
		return 0
	}
	return d.Normalize(s.Get(id))
}

// Drive returns the current drive.
func (s *Store) Drive() float32 { return s.load(0) }

// GainDB returns the current output gain in dB.
func (s *Store) GainDB() float32 { return s.load(1) }

// MixPercent returns the current wet amount in percent.
func (s *Store) MixPercent() float32 { return s.load(2) }

// HPF returns the current high-pass cutoff in Hz.
func (s *Store) HPF() float32 { return s.load(3) }

// LPF returns the current low-pass cutoff in Hz.
func (s *Store) LPF() float32 { return s.load(4) }

// Snapshot loads every field. Fields are read independently; a concurrent
// writer may be observed for some fields and not others.
func (s *Store) Snapshot() ParameterSet {
	return ParameterSet{
		Drive:      s.Drive(),
		GainDB:     s.GainDB(),
		MixPercent: s.MixPercent(),
		HPFHz:      s.HPF(),
		LPFHz:      s.LPF(),
	}
}

// Apply stores every field of p, clamped.
func (s *Store) Apply(p ParameterSet) {
	for _, d := range layout {
		v, _ := p.Value(d.ID)
		_ = s.Set(d.ID, v)
	}
}

// Reset restores the defaults.
func (s *Store) Reset() {
	s.Apply(Defaults())
}

// Subscribe registers fn for write notifications. The returned function
// removes the registration and may be called more than once.
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(id ID, v float32) {
	s.mu.Lock()
	if len(s.listeners) == 0 {
		s.mu.Unlock()
		return
	}
	subs := make([]subscription, len(s.listeners))
	copy(subs, s.listeners)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(id, v)
	}
}
