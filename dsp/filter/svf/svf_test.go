package svf

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-overdrive/dsp/core"
)

func prepared(t *testing.T, typ Type, cutoff, resonance float32) *Filter {
	t.Helper()

	f := New(typ)
	if err := f.Prepare(core.ProcessSpec{SampleRate: 44100, MaxBlockSize: 512, NumChannels: 2}); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	f.SetCutoffFrequency(cutoff)
	f.SetResonance(resonance)
	return f
}

func sine(freq, sampleRate float64, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / sampleRate))
	}
	return out
}

func peak(buf []float32) float64 {
	p := 0.0
	for _, v := range buf {
		p = math.Max(p, math.Abs(float64(v)))
	}
	return p
}

func TestPrepareRejectsInvalidSpec(t *testing.T) {
	f := New(Lowpass)
	if err := f.Prepare(core.ProcessSpec{SampleRate: 0, MaxBlockSize: 512, NumChannels: 2}); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
	if f.NumChannels() != 0 {
		t.Fatalf("NumChannels() = %d, want 0 after failed prepare", f.NumChannels())
	}
}

func TestDCResponse(t *testing.T) {
	tests := []struct {
		typ  Type
		want float64
	}{
		{Lowpass, 1},
		{Highpass, 0},
		{Bandpass, 0},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			f := prepared(t, tt.typ, 200, 0.7)
			buf := make([]float32, 44100)
			for i := range buf {
				buf[i] = 1
			}
			f.ProcessBlock(0, buf)

			got := float64(buf[len(buf)-1])
			if math.Abs(got-tt.want) > 1e-3 {
				t.Fatalf("settled DC output = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMagnitudeAtCutoffEqualsResonance(t *testing.T) {
	for _, typ := range []Type{Lowpass, Highpass} {
		f := prepared(t, typ, 1000, 0.7)
		got := f.MagnitudeDB(1000)
		want := 20 * math.Log10(0.7)
		if math.Abs(got-want) > 1e-6 {
			t.Fatalf("%s |H(fc)| = %.4f dB, want %.4f dB", typ, got, want)
		}
	}
}

func TestSteadyStateMatchesResponse(t *testing.T) {
	tests := []struct {
		typ  Type
		freq float64
	}{
		{Lowpass, 500},
		{Lowpass, 4000},
		{Highpass, 250},
		{Highpass, 3000},
		{Bandpass, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			f := prepared(t, tt.typ, 1000, 0.7)
			buf := sine(tt.freq, 44100, 16384)
			f.ProcessBlock(0, buf)

			got := peak(buf[12000:])
			want := math.Pow(10, f.MagnitudeDB(tt.freq)/20)
			if math.Abs(got-want) > 0.02*math.Max(want, 0.05) {
				t.Fatalf("steady-state amplitude at %v Hz = %.4f, want %.4f", tt.freq, got, want)
			}
		})
	}
}

func TestChannelsAreIndependent(t *testing.T) {
	f := prepared(t, Lowpass, 500, 0.7)

	left := sine(100, 44100, 256)
	right := make([]float32, 256)
	f.Process([][]float32{left, right})

	for i, v := range right {
		if v != 0 {
			t.Fatalf("silent channel leaked state at %d: %v", i, v)
		}
	}
}

func TestStateCarriesAcrossBlocks(t *testing.T) {
	whole := prepared(t, Highpass, 300, 0.7)
	split := prepared(t, Highpass, 300, 0.7)

	in := sine(220, 44100, 1024)
	a := append([]float32(nil), in...)
	b := append([]float32(nil), in...)

	whole.ProcessBlock(0, a)
	split.ProcessBlock(0, b[:300])
	split.ProcessBlock(0, b[300:])

	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > 1e-6 {
			t.Fatalf("block split changed output at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestPrepareResetsState(t *testing.T) {
	f := prepared(t, Lowpass, 800, 0.7)
	spec := core.ProcessSpec{SampleRate: 44100, MaxBlockSize: 512, NumChannels: 2}

	first := sine(440, 44100, 512)
	f.ProcessBlock(0, first)

	if err := f.Prepare(spec); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	again := sine(440, 44100, 512)
	f.ProcessBlock(0, again)

	for i := range first {
		if first[i] != again[i] {
			t.Fatalf("output after re-prepare differs at %d: %v vs %v", i, first[i], again[i])
		}
	}
}

func TestPrepareClearsReusedChannelState(t *testing.T) {
	f := prepared(t, Lowpass, 800, 0.7)

	first := sine(440, 44100, 256)
	f.ProcessBlock(1, first)

	for _, channels := range []int{1, 2} {
		if err := f.Prepare(core.ProcessSpec{SampleRate: 44100, MaxBlockSize: 512, NumChannels: channels}); err != nil {
			t.Fatalf("Prepare(%d channels) error = %v", channels, err)
		}
	}

	again := sine(440, 44100, 256)
	f.ProcessBlock(1, again)

	for i := range first {
		if first[i] != again[i] {
			t.Fatalf("channel 1 kept stale state at %d: %v vs %v", i, first[i], again[i])
		}
	}
}

func TestResetClearsState(t *testing.T) {
	f := prepared(t, Lowpass, 800, 0.7)
	f.ProcessBlock(1, sine(440, 44100, 128))
	f.Reset()

	if f.s1[1] != 0 || f.s2[1] != 0 {
		t.Fatalf("state after Reset = (%v, %v), want zeros", f.s1[1], f.s2[1])
	}
}

func TestCutoffClampedBelowNyquist(t *testing.T) {
	f := New(Lowpass)
	if err := f.Prepare(core.ProcessSpec{SampleRate: 32000, MaxBlockSize: 64, NumChannels: 1}); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	f.SetCutoffFrequency(20000)

	buf := sine(1000, 32000, 2048)
	f.ProcessBlock(0, buf)
	for i, v := range buf {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("non-finite output at %d: %v", i, v)
		}
	}
	if f.CutoffFrequency() != 20000 {
		t.Fatalf("CutoffFrequency() = %v, want requested 20000", f.CutoffFrequency())
	}
}

func TestSetResonanceIgnoresInvalid(t *testing.T) {
	f := New(Lowpass)
	f.SetResonance(0.7)
	f.SetResonance(0)
	f.SetResonance(-1)
	if f.Resonance() != 0.7 {
		t.Fatalf("Resonance() = %v, want 0.7", f.Resonance())
	}
}

func TestProcessBlockAllocationFree(t *testing.T) {
	f := prepared(t, Highpass, 120, 0.7)
	buf := sine(440, 44100, 512)

	allocs := testing.AllocsPerRun(100, func() {
		f.ProcessBlock(0, buf)
	})
	if allocs != 0 {
		t.Fatalf("ProcessBlock allocated %v times per run, want 0", allocs)
	}
}
