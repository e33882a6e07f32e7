package engine

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-overdrive/dsp/core"
	"github.com/cwbudde/algo-overdrive/internal/testutil"
	"github.com/cwbudde/algo-overdrive/params"
)

var update = flag.Bool("update", false, "rewrite golden files in testdata")

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	return New(append([]Option{WithLogger(log)}, opts...)...)
}

func prepared(t *testing.T, sampleRate float64, blockSize, channels int) *Engine {
	t.Helper()
	e := newTestEngine(t)
	require.NoError(t, e.Prepare(sampleRate, blockSize, channels))
	return e
}

func rms(buf []float32) float64 {
	if len(buf) == 0 {
		return 0
	}
	var sum float64
	for _, v := range buf {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(buf)))
}

func TestNewEngineDefaults(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, Unprepared, e.State())
	assert.Equal(t, params.Defaults(), e.Params().Snapshot())
	assert.Zero(t, e.LatencySamples())
	assert.Zero(t, e.TailSeconds())
	assert.Equal(t, Stats{}, e.Stats())
}

func TestWithStoreShares(t *testing.T) {
	store := params.NewStore()
	e := newTestEngine(t, WithStore(store))
	require.NoError(t, store.Set(params.Drive, 7))
	assert.Same(t, store, e.Params())
	assert.Equal(t, float32(7), e.Params().Drive())
}

func TestPrepareRejectsInvalidSpec(t *testing.T) {
	cases := []struct {
		name       string
		sampleRate float64
		blockSize  int
		channels   int
	}{
		{"zero rate", 0, 512, 2},
		{"negative rate", -44100, 512, 2},
		{"nan rate", math.NaN(), 512, 2},
		{"zero block", 44100, 0, 2},
		{"zero channels", 44100, 512, 0},
		{"too many channels", 44100, 512, core.MaxChannels + 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEngine(t)
			err := e.Prepare(tc.sampleRate, tc.blockSize, tc.channels)
			require.ErrorIs(t, err, core.ErrInvalidSpec)
			assert.Equal(t, Unprepared, e.State())
		})
	}
}

func TestPrepareFailureKeepsPreviousSpec(t *testing.T) {
	e := prepared(t, 44100, 256, 2)
	require.Error(t, e.Prepare(0, 256, 2))
	assert.Equal(t, Prepared, e.State())
	assert.Equal(t, 44100.0, e.Spec().SampleRate)
}

func TestProcessBeforePrepareIsPassthrough(t *testing.T) {
	e := newTestEngine(t)
	buf := testutil.StereoSine(2, 440, 44100, 0.5, 128)
	want := testutil.Clone(buf)

	e.Process(buf)

	testutil.RequireBitIdentical(t, buf, want)
	assert.Equal(t, Stats{SkippedBuffers: 1}, e.Stats())
}

func TestProcessAfterReleaseIsPassthrough(t *testing.T) {
	e := prepared(t, 44100, 128, 2)
	e.Process(testutil.StereoSine(2, 440, 44100, 0.5, 128))
	e.Release()
	assert.Equal(t, Released, e.State())

	buf := testutil.StereoSine(2, 440, 44100, 0.5, 128)
	want := testutil.Clone(buf)
	e.Process(buf)

	testutil.RequireBitIdentical(t, buf, want)
	assert.Equal(t, Stats{ProcessedBuffers: 1, SkippedBuffers: 1}, e.Stats())
}

func TestReleaseIsIdempotent(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	e := New(WithLogger(log))
	require.NoError(t, e.Prepare(44100, 64, 2))
	hook.Reset()

	e.Release()
	e.Release()

	assert.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, Released, e.State())
}

func TestPrepareAfterRelease(t *testing.T) {
	e := prepared(t, 44100, 64, 2)
	e.Release()
	require.NoError(t, e.Prepare(48000, 64, 2))
	assert.Equal(t, Prepared, e.State())

	buf := testutil.StereoSine(2, 440, 48000, 0.5, 64)
	e.Process(buf)
	assert.Equal(t, Processing, e.State())
	testutil.RequireFinite(t, buf[0])
}

func TestMixZeroIsExactPassthrough(t *testing.T) {
	e := prepared(t, 44100, 512, 2)
	require.NoError(t, e.Params().Set(params.Mix, 0))
	require.NoError(t, e.Params().Set(params.Drive, 10))
	require.NoError(t, e.Params().Set(params.Gain, 10))

	buf := [][]float32{
		testutil.DeterministicNoise(1, 0.9, 512),
		testutil.DeterministicNoise(2, 0.9, 512),
	}
	want := testutil.Clone(buf)

	e.Process(buf)

	assert.Equal(t, want, buf)
}

func TestDriveZeroFullWetIsSilent(t *testing.T) {
	e := prepared(t, 44100, 512, 2)
	require.NoError(t, e.Params().Set(params.Drive, 0))
	require.NoError(t, e.Params().Set(params.Mix, 100))

	buf := testutil.StereoSine(2, 440, 44100, 0.8, 512)
	e.Process(buf)

	for ch := range buf {
		for i, v := range buf[ch] {
			require.Zerof(t, v, "channel %d sample %d", ch, i)
		}
	}
}

func TestHighDriveSaturatesAtGain(t *testing.T) {
	const (
		sampleRate = 48000.0
		blockSize  = 480
		blocks     = 25
	)

	e := prepared(t, sampleRate, blockSize, 2)
	require.NoError(t, e.Params().Set(params.Drive, 10))
	require.NoError(t, e.Params().Set(params.Mix, 100))

	gain := float64(core.DecibelsToGain(e.Params().GainDB()))
	signal := testutil.DeterministicSine(1000, sampleRate, 1, blockSize*blocks)

	var inBand, total int
	for b := 0; b < blocks; b++ {
		left := append([]float32(nil), signal[b*blockSize:(b+1)*blockSize]...)
		right := append([]float32(nil), left...)
		e.Process([][]float32{left, right})

		// Skip the filter settling time.
		if b < blocks/2 {
			continue
		}
		for _, v := range left {
			a := math.Abs(float64(v))
			if a >= 0.85*gain && a <= 1.15*gain {
				inBand++
			}
			total++
		}
	}

	ratio := float64(inBand) / float64(total)
	assert.GreaterOrEqualf(t, ratio, 0.7, "only %.1f%% of samples near the saturation level", 100*ratio)
}

func TestHigherDriveRaisesLevel(t *testing.T) {
	level := func(drive float32) float64 {
		e := prepared(t, 44100, 1024, 1)
		require.NoError(t, e.Params().Set(params.Drive, drive))
		require.NoError(t, e.Params().Set(params.Mix, 100))
		buf := [][]float32{testutil.DeterministicSine(440, 44100, 0.1, 1024)}
		e.Process(buf)
		return rms(buf[0][512:])
	}

	assert.Greater(t, level(8), level(1))
}

func TestCutoffQuantization(t *testing.T) {
	cases := []struct {
		in, want float32
	}{
		{523, 520},
		{525, 530},
		{527, 530},
		{20, 20},
		{19999, 20000},
		{1234.9, 1230},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, QuantizeCutoff(tc.in), "QuantizeCutoff(%v)", tc.in)
	}
}

func TestProcessAppliesQuantizedCutoffs(t *testing.T) {
	e := prepared(t, 44100, 64, 2)
	hp, lp := e.Cutoffs()
	assert.Equal(t, float32(20), hp)
	assert.Equal(t, float32(20000), lp)

	require.NoError(t, e.Params().Set(params.HPF, 523))
	require.NoError(t, e.Params().Set(params.LPF, 4445))
	e.Process(testutil.StereoSine(2, 440, 44100, 0.5, 64))

	hp, lp = e.Cutoffs()
	assert.Equal(t, float32(520), hp)
	assert.Equal(t, float32(4450), lp)

	require.NoError(t, e.Params().Set(params.HPF, 525))
	e.Process(testutil.StereoSine(2, 440, 44100, 0.5, 64))
	hp, _ = e.Cutoffs()
	assert.Equal(t, float32(530), hp)
}

func TestHighPassAboveLowPassAttenuates(t *testing.T) {
	e := prepared(t, 44100, 4096, 1)
	require.NoError(t, e.Params().Set(params.Mix, 100))
	require.NoError(t, e.Params().Set(params.Drive, 1))
	require.NoError(t, e.Params().Set(params.HPF, 10000))
	require.NoError(t, e.Params().Set(params.LPF, 200))

	buf := [][]float32{testutil.DeterministicSine(1500, 44100, 0.5, 4096)}
	e.Process(buf)

	testutil.RequireFinite(t, buf[0])
	assert.Less(t, rms(buf[0][2048:]), 0.05)
}

func TestPrepareResetsFilterState(t *testing.T) {
	signal := testutil.StereoSine(2, 440, 44100, 0.5, 256)

	e := prepared(t, 44100, 256, 2)
	first := testutil.Clone(signal)
	e.Process(first)

	e.Process(testutil.StereoSine(2, 3000, 44100, 0.9, 256))

	require.NoError(t, e.Prepare(44100, 256, 2))
	second := testutil.Clone(signal)
	e.Process(second)

	testutil.RequireBitIdentical(t, second, first)
}

func TestReprepareMatchesFreshEngine(t *testing.T) {
	e := prepared(t, 44100, 256, 2)
	require.NoError(t, e.Params().Set(params.HPF, 300))
	e.Process(testutil.StereoSine(2, 440, 44100, 0.5, 256))

	require.NoError(t, e.Prepare(96000, 512, 2))
	got := testutil.StereoSine(2, 440, 96000, 0.5, 512)
	e.Process(got)

	fresh := prepared(t, 96000, 512, 2)
	require.NoError(t, fresh.Params().Set(params.HPF, 300))
	want := testutil.StereoSine(2, 440, 96000, 0.5, 512)
	fresh.Process(want)

	testutil.RequireBitIdentical(t, got, want)
	assert.Equal(t, 96000.0, e.Spec().SampleRate)
}

func TestExtraChannelsUntouched(t *testing.T) {
	e := prepared(t, 44100, 128, 1)
	buf := testutil.StereoSine(2, 440, 44100, 0.5, 128)
	want := testutil.Clone(buf)

	e.Process(buf)

	assert.Equal(t, want[1], buf[1])
	assert.NotEqual(t, want[0], buf[0])
}

func TestFewerChannelsThanPrepared(t *testing.T) {
	e := prepared(t, 44100, 128, 2)
	buf := [][]float32{testutil.DeterministicSine(440, 44100, 0.5, 128)}
	e.Process(buf)
	testutil.RequireFinite(t, buf[0])
	assert.Equal(t, uint64(1), e.Stats().ProcessedBuffers)
}

func TestEmptyBuffer(t *testing.T) {
	e := prepared(t, 44100, 128, 2)
	assert.NotPanics(t, func() {
		e.Process(nil)
		e.Process([][]float32{{}, {}})
	})
}

func TestBlockLargerThanPrepared(t *testing.T) {
	e := prepared(t, 44100, 64, 2)
	buf := testutil.StereoSine(2, 440, 44100, 0.5, 1000)
	e.Process(buf)
	testutil.RequireFinite(t, buf[0])
	testutil.RequireFinite(t, buf[1])
}

func TestBlockSplitInvariance(t *testing.T) {
	signal := testutil.StereoSine(2, 440, 44100, 0.5, 512)

	whole := testutil.Clone(signal)
	prepared(t, 44100, 512, 2).Process(whole)

	e := prepared(t, 44100, 512, 2)
	split := testutil.Clone(signal)
	for start := 0; start < 512; start += 100 {
		end := min(start+100, 512)
		e.Process([][]float32{split[0][start:end], split[1][start:end]})
	}

	// Denormal flushing at block edges can only differ below 1e-15.
	for ch := range whole {
		testutil.RequireSliceNearlyEqual(t, split[ch], whole[ch], 1e-6)
	}
}

func TestProcessMatchesGolden(t *testing.T) {
	e := prepared(t, 44100, 512, 2)
	buf := testutil.StereoSine(2, 440, 44100, 0.5, 512)
	e.Process(buf)

	path := filepath.Join("testdata", "sine440_defaults.golden")
	if *update {
		writeGolden(t, path, buf)
	}

	want := readGolden(t, path)
	require.Len(t, want, 2)
	for ch := range buf {
		testutil.RequireSliceNearlyEqual(t, buf[ch], want[ch], 1e-6)
	}
}

func TestProcessDoesNotAllocate(t *testing.T) {
	e := prepared(t, 48000, 256, 2)
	buf := testutil.StereoSine(2, 440, 48000, 0.5, 256)
	store := e.Params()

	hz := float32(100)
	allocs := testing.AllocsPerRun(50, func() {
		hz += 10
		_ = store.Set(params.HPF, hz)
		e.Process(buf)
	})

	assert.Zero(t, allocs)
}

func TestConcurrentParameterWrites(t *testing.T) {
	e := prepared(t, 44100, 64, 2)
	store := e.Params()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			_ = store.Set(params.Drive, float32(i%11))
			_ = store.Set(params.LPF, float32(1000+i%5000))
			_ = store.Set(params.Mix, float32(i%101))
		}
	}()

	buf := testutil.StereoSine(2, 440, 44100, 0.5, 64)
	for i := 0; i < 500; i++ {
		e.Process(buf)
		testutil.RequireFinite(t, buf[0])
	}

	close(stop)
	wg.Wait()

	assert.Equal(t, uint64(500), e.Stats().ProcessedBuffers)
}

func TestLifecycleLogging(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	e := New(WithLogger(log))

	require.Error(t, e.Prepare(44100, 0, 2))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "Prepare", entry.Data["function"])

	require.NoError(t, e.Prepare(44100, 128, 2))
	entry = hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "Engine prepared", entry.Message)
	assert.Equal(t, 44100.0, entry.Data["sampleRate"])

	e.Process(testutil.StereoSine(2, 440, 44100, 0.5, 128))
	e.Release()
	entry = hook.LastEntry()
	assert.Equal(t, "Engine released", entry.Message)
	assert.Equal(t, uint64(1), entry.Data["processed"])
}

func TestFiltersUseFixedResonance(t *testing.T) {
	e := prepared(t, 44100, 64, 2)
	assert.Equal(t, float32(Resonance), e.highPass.Resonance())
	assert.Equal(t, float32(Resonance), e.lowPass.Resonance())
}

func TestNewSeedsOverdriveFromStore(t *testing.T) {
	store := params.NewStore()
	require.NoError(t, store.Set(params.Drive, 8))
	require.NoError(t, store.Set(params.Gain, 6))

	e := newTestEngine(t, WithStore(store))
	assert.Equal(t, float32(8), e.overdrive.Drive())
	assert.Equal(t, float32(6), e.overdrive.GainDB())
	assert.Equal(t, core.DecibelsToGain(6), e.overdrive.Gain())
}

func TestPrepareSpec(t *testing.T) {
	e := newTestEngine(t)
	spec := core.ApplyProcessOptions(core.WithSampleRate(44100), core.WithChannels(1))
	require.NoError(t, e.PrepareSpec(spec))
	assert.Equal(t, spec, e.Spec())
	assert.Equal(t, Prepared, e.State())

	err := e.PrepareSpec(core.ProcessSpec{SampleRate: 44100, MaxBlockSize: 64, NumChannels: 3})
	require.ErrorIs(t, err, core.ErrInvalidSpec)
	assert.Equal(t, spec, e.Spec())
}

func TestInfo(t *testing.T) {
	info := newTestEngine(t).Info()
	assert.Equal(t, "OverDrive4", info.Name)
	assert.Equal(t, core.MaxChannels, info.MaxChannels)
	assert.False(t, info.AcceptsMIDI)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "processing", Processing.String())
	assert.Equal(t, "State(9)", State(9).String())
}

func readGolden(t *testing.T, path string) [][]float32 {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	out := [][]float32{nil, nil}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		require.Len(t, fields, 2, "malformed golden line %q", line)
		for ch, field := range fields {
			v, err := strconv.ParseFloat(field, 32)
			require.NoError(t, err)
			out[ch] = append(out[ch], float32(v))
		}
	}
	require.NoError(t, scanner.Err())

	return out
}

func writeGolden(t *testing.T, path string, buf [][]float32) {
	t.Helper()

	var sb strings.Builder
	sb.WriteString("# 440 Hz sine, amplitude 0.5, 44100 Hz, 512 frames, 2 channels, default parameters\n")
	sb.WriteString("# left right\n")
	for i := range buf[0] {
		fmt.Fprintf(&sb, "%.9g %.9g\n", buf[0][i], buf[1][i])
	}
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
}
