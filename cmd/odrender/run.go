package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-overdrive/dsp/buffer"
	"github.com/cwbudde/algo-overdrive/dsp/core"
	"github.com/cwbudde/algo-overdrive/dsp/window"
	"github.com/cwbudde/algo-overdrive/engine"
	"github.com/cwbudde/algo-overdrive/internal/host"
	"github.com/cwbudde/algo-overdrive/internal/logging"
	"github.com/cwbudde/algo-overdrive/internal/wavio"
	"github.com/cwbudde/algo-overdrive/measure/harmonics"
	"github.com/cwbudde/algo-overdrive/measure/level"
	"github.com/cwbudde/algo-overdrive/measure/response"
	"github.com/cwbudde/algo-overdrive/params"
	"github.com/cwbudde/algo-overdrive/state"
)

var paramFlags = []struct {
	name string
	id   params.ID
}{
	{"drive", params.Drive},
	{"gain", params.Gain},
	{"mix", params.Mix},
	{"hpf", params.HPF},
	{"lpf", params.LPF},
}

var responseFreqs = []float64{20, 50, 100, 200, 500, 1000, 2000, 5000, 10000, 15000, 20000}

type options struct {
	in, out        string
	statePath      string
	saveState      string
	sampleRate     int
	seconds        float64
	toneHz         float64
	amplitude      float64
	blockSize      int
	bitDepth       int
	fundamental    float64
	report         bool
	showResponse   bool
	logLevel       string
	logJSON        bool
	values         map[params.ID]float32
	explicitValues []params.ID
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{values: make(map[params.ID]float32)}

	fs := flag.NewFlagSet("odrender", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.in, "in", "", "input WAV file (default: generated tone)")
	fs.StringVar(&opts.out, "out", "", "output WAV file")
	fs.StringVar(&opts.statePath, "state", "", "load parameters from a saved state file before applying flags")
	fs.StringVar(&opts.saveState, "save-state", "", "write the final parameters to a state file")
	fs.IntVar(&opts.sampleRate, "rate", 48000, "sample rate of the generated tone")
	fs.Float64Var(&opts.seconds, "seconds", 1, "length of the generated tone")
	fs.Float64Var(&opts.toneHz, "tone", 1000, "frequency of the generated tone in Hz")
	fs.Float64Var(&opts.amplitude, "amp", 0.5, "peak amplitude of the generated tone")
	fs.IntVar(&opts.blockSize, "block", 512, "processing block size in frames")
	fs.IntVar(&opts.bitDepth, "bits", 0, "output bit depth (default: input depth or 24)")
	fs.Float64Var(&opts.fundamental, "fundamental", 0, "fundamental for the distortion report (default: -tone)")
	fs.BoolVar(&opts.report, "report", true, "print a harmonic distortion report")
	fs.BoolVar(&opts.showResponse, "response", false, "print the small-signal magnitude response")
	fs.StringVar(&opts.logLevel, "log-level", "warning", "log level")
	fs.BoolVar(&opts.logJSON, "log-json", false, "log as JSON")

	for _, pf := range paramFlags {
		d, _ := params.Lookup(pf.id)
		id := pf.id
		usage := fmt.Sprintf("%s in [%s, %s] (default %s)", d.Name, d.Format(d.Min), d.Format(d.Max), d.Format(d.Default))
		fs.Func(pf.name, usage, func(s string) error {
			v, err := d.Parse(s)
			if err != nil {
				return err
			}
			if _, seen := opts.values[id]; !seen {
				opts.explicitValues = append(opts.explicitValues, id)
			}
			opts.values[id] = v
			return nil
		})
	}

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: odrender [flags]\n\n")
		fmt.Fprintf(stderr, "Renders a WAV file or test tone through the overdrive engine.\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  odrender -drive 8 -mix 100\n")
		fmt.Fprintf(stderr, "  odrender -in guitar.wav -out crunch.wav -hpf \"120 Hz\"\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	if opts.blockSize <= 0 {
		return nil, fmt.Errorf("block size must be > 0: %d", opts.blockSize)
	}

	return opts, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	log, err := logging.New(logging.Options{Level: opts.logLevel, JSON: opts.logJSON, Output: stderr})
	if err != nil {
		return err
	}

	store := params.NewStore()
	if err := loadState(store, opts.statePath); err != nil {
		return err
	}
	for _, id := range opts.explicitValues {
		if err := store.Set(id, opts.values[id]); err != nil {
			return err
		}
	}

	clip, err := loadInput(opts)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"function":   "run",
		"sampleRate": clip.SampleRate,
		"channels":   clip.Audio.NumChannels(),
		"frames":     clip.Audio.Len(),
	}).Info("Rendering")

	spec := core.ApplyProcessOptions(
		core.WithSampleRate(float64(clip.SampleRate)),
		core.WithBlockSize(opts.blockSize),
		core.WithChannels(clip.Audio.NumChannels()),
	)

	e := engine.New(engine.WithLogger(log), engine.WithStore(store))
	if err := e.PrepareSpec(spec); err != nil {
		return err
	}

	inputLevel := level.Calculate(clip.Audio.Channel(0))
	host.NewRenderer(e, spec.NumChannels, spec.MaxBlockSize).RenderPlanar(clip.Audio.Channels())
	e.Release()

	printParameters(stdout, store)
	printLevels(stdout, inputLevel, level.Calculate(clip.Audio.Channel(0)))

	if opts.out != "" {
		if opts.bitDepth != 0 {
			clip.BitDepth = opts.bitDepth
		}
		if err := wavio.WriteFile(opts.out, clip); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %s (%d frames, %d Hz)\n", opts.out, clip.Audio.Len(), clip.SampleRate)
	}

	if opts.report {
		if err := printReport(stdout, opts, clip); err != nil {
			log.WithFields(logrus.Fields{
				"function": "run",
				"error":    err.Error(),
			}).Warn("Skipped distortion report")
		}
	}

	if opts.showResponse {
		if err := printResponse(stdout, store, clip.SampleRate, log); err != nil {
			return err
		}
	}

	if opts.saveState != "" {
		if err := os.WriteFile(opts.saveState, state.Save(store), 0o644); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}

	return nil
}

func loadState(store *params.Store, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	if err := state.Load(store, data); err != nil {
		return fmt.Errorf("load state %s: %w", path, err)
	}

	return nil
}

func loadInput(opts *options) (wavio.Clip, error) {
	if opts.in != "" {
		return wavio.ReadFile(opts.in)
	}

	if opts.sampleRate <= 0 || opts.seconds <= 0 {
		return wavio.Clip{}, fmt.Errorf("tone needs a positive rate and length: %d Hz, %g s", opts.sampleRate, opts.seconds)
	}

	frames := int(opts.seconds * float64(opts.sampleRate))
	audio := buffer.New(2, frames)
	host.NewTone(opts.toneHz, float64(opts.sampleRate), opts.amplitude).Fill(audio.Channels())

	return wavio.Clip{
		Audio:      audio,
		SampleRate: opts.sampleRate,
	}, nil
}

func printParameters(w io.Writer, store *params.Store) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Parameter\tValue\n")
	fmt.Fprintf(tw, "---------\t-----\n")
	for _, d := range params.Layout() {
		fmt.Fprintf(tw, "%s\t%s\n", d.Name, d.Format(store.Get(d.ID)))
	}
	_ = tw.Flush()
}

func printLevels(w io.Writer, in, out level.Level) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\n\tInput\tOutput\n")
	fmt.Fprintf(tw, "Peak [dBFS]\t%.2f\t%.2f\n", in.PeakDB, out.PeakDB)
	fmt.Fprintf(tw, "RMS [dBFS]\t%.2f\t%.2f\n", in.RMSDB, out.RMSDB)
	fmt.Fprintf(tw, "Crest [dB]\t%.2f\t%.2f\n", in.CrestFactorDB, out.CrestFactorDB)
	fmt.Fprintf(tw, "Clipped\t%d\t%d\n", in.Clipped, out.Clipped)
	_ = tw.Flush()
}

func printReport(w io.Writer, opts *options, clip wavio.Clip) error {
	fundamental := opts.fundamental
	if fundamental <= 0 {
		fundamental = opts.toneHz
	}

	size := 1
	for size*2 <= clip.Audio.Len() && size < 65536 {
		size *= 2
	}

	cfg := harmonics.Config{
		SampleRate:  float64(clip.SampleRate),
		FFTSize:     size,
		Fundamental: fundamental,
		Window:      window.TypeFlatTop,
	}

	a, err := harmonics.NewAnalyzer(cfg)
	if err != nil {
		return err
	}

	res, err := a.Analyze(clip.Audio.Channel(0))
	if err != nil {
		return err
	}

	win := window.Info(cfg.Window)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\nWindow\t%s, %d points, ENBW %.2f bins\n", win.Name, size, win.ENBW)
	fmt.Fprintf(tw, "Fundamental\t%.1f Hz\n", res.Fundamental)
	fmt.Fprintf(tw, "Amplitude\t%.4f (%.2f dBFS)\n", res.Amplitude, core.GainToDecibels(float32(res.Amplitude)))
	fmt.Fprintf(tw, "THD\t%.2f %% (%.1f dB)\n", 100*res.THD, res.THDdB)
	fmt.Fprintf(tw, "Odd / even\t%.4f / %.4f (%s)\n", res.Odd, res.Even, character(res))
	for k := 2; k < len(res.Harmonics)+2; k++ {
		fmt.Fprintf(tw, "H%d\t%.2f %%\n", k, 100*res.Harmonic(k))
	}

	return tw.Flush()
}

func crossing(r *response.Response, levelDB, fromHz float64) string {
	hz, ok := r.Cutoff(levelDB, fromHz)
	if !ok {
		return "none"
	}
	return fmt.Sprintf("%.0f Hz", hz)
}

func character(res harmonics.Result) string {
	switch {
	case res.THD == 0:
		return "clean"
	case res.OddDominant():
		return "odd-dominant"
	default:
		return "even-dominant"
	}
}

// printResponse measures a fresh engine with the same parameters at a level
// where tanh is linear, normalized by drive*gain.
func printResponse(w io.Writer, store *params.Store, sampleRate int, log logrus.FieldLogger) error {
	snapshot := store.Snapshot()
	probe := params.NewStore()
	probe.Apply(snapshot)
	_ = probe.Set(params.Mix, 100)
	if probe.Drive() == 0 {
		_ = probe.Set(params.Drive, 1)
	}

	e := engine.New(engine.WithLogger(log), engine.WithStore(probe))
	spec := core.ApplyProcessOptions(core.WithSampleRate(float64(sampleRate)), core.WithChannels(1))
	if err := e.PrepareSpec(spec); err != nil {
		return err
	}
	defer e.Release()

	const amplitude = 1e-4
	r, err := response.Measure(e, response.Config{
		SampleRate: float64(sampleRate),
		Length:     16384,
		Amplitude:  amplitude,
	})
	if err != nil {
		return err
	}

	offset := float64(core.GainToDecibels(probe.Drive()) + probe.GainDB())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\nFrequency [Hz]\tResponse [dB]\n")
	fmt.Fprintf(tw, "--------------\t-------------\n")
	for _, f := range responseFreqs {
		if f >= float64(sampleRate)/2 {
			break
		}
		fmt.Fprintf(tw, "%.0f\t%.2f\n", f, r.DB(f)-offset)
	}

	highPass, lowPass := e.Cutoffs()
	fmt.Fprintf(tw, "\nHPF -3 dB\t%s\n", crossing(r, offset-3, 1))
	fmt.Fprintf(tw, "LPF -3 dB\t%s\n", crossing(r, offset-3, math.Sqrt(float64(highPass)*float64(lowPass))))

	return tw.Flush()
}
