// Command odplay plays audio through the overdrive engine in real time.
//
// Usage:
//
//	odplay [flags]
//
// A WAV file (-in) is looped, or a test tone is generated. Parameters are
// changed while playing by typing commands on stdin:
//
//	set DRIVE 7.5
//	set HPF_FREQ 250 Hz
//	knob LPF_FREQ 0.5
//	auto MIX 0.25
//	get
//	save preset.odrv
//	load preset.odrv
//	quit
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ebitengine/oto/v3"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-overdrive/dsp/buffer"
	"github.com/cwbudde/algo-overdrive/dsp/core"
	"github.com/cwbudde/algo-overdrive/engine"
	"github.com/cwbudde/algo-overdrive/internal/host"
	"github.com/cwbudde/algo-overdrive/internal/logging"
	"github.com/cwbudde/algo-overdrive/internal/wavio"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("odplay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "", "WAV file to loop (default: generated tone)")
	rate := fs.Int("rate", 48000, "sample rate of the generated tone")
	toneHz := fs.Float64("tone", 220, "frequency of the generated tone in Hz")
	amp := fs.Float64("amp", 0.5, "peak amplitude of the generated tone")
	blockSize := fs.Int("block", 256, "processing block size in frames")
	statePath := fs.String("state", "", "load parameters from a saved state file")
	logLevel := fs.String("log-level", "info", "log level")
	logJSON := fs.Bool("log-json", false, "log as JSON")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	log, err := logging.New(logging.Options{Level: *logLevel, JSON: *logJSON, Output: stderr})
	if err != nil {
		return err
	}

	src, sampleRate, err := openSource(*in, *rate, *toneHz, *amp)
	if err != nil {
		return err
	}

	e := engine.New(engine.WithLogger(log))
	ctl := newController(e.Params(), stdout)
	if *statePath != "" {
		if err := ctl.handle("load " + *statePath); err != nil {
			return err
		}
	}

	spec := core.ApplyProcessOptions(
		core.WithSampleRate(float64(sampleRate)),
		core.WithBlockSize(*blockSize),
		core.WithChannels(2),
	)
	if err := e.PrepareSpec(spec); err != nil {
		return err
	}
	defer e.Release()

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: spec.NumChannels,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return fmt.Errorf("audio output: %w", err)
	}
	<-ready

	player := ctx.NewPlayer(host.NewStream(e, src, spec.NumChannels, spec.MaxBlockSize))
	player.SetBufferSize(spec.MaxBlockSize * spec.NumChannels * 4 * 4)
	player.Play()
	defer player.Close()

	log.WithFields(logrus.Fields{
		"function":   "run",
		"sampleRate": e.Spec().SampleRate,
		"blockSize":  e.Spec().MaxBlockSize,
		"latency":    e.LatencySamples(),
		"tail":       e.TailSeconds(),
	}).Info("Playing")

	return ctl.loop(stdin, stderr)
}

func openSource(path string, rate int, toneHz, amp float64) (host.Source, int, error) {
	if path == "" {
		if rate <= 0 {
			return nil, 0, fmt.Errorf("sample rate must be > 0: %d", rate)
		}
		return host.NewTone(toneHz, float64(rate), amp), rate, nil
	}

	clip, err := wavio.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}

	if clip.Audio.NumChannels() > 2 {
		return nil, 0, fmt.Errorf("%s: %d channels, at most 2 supported", path, clip.Audio.NumChannels())
	}

	return host.NewLoop(stereo(clip.Audio)), clip.SampleRate, nil
}

// stereo returns a unchanged when it already has two channels.
func stereo(a *buffer.Audio) *buffer.Audio {
	if a.NumChannels() == 2 {
		return a
	}
	mono := a.Channel(0)
	return buffer.FromChannels([][]float32{mono, mono})
}

func usageLine() string {
	return strings.Join([]string{"set <ID> <value>", "knob <ID> <0..1>", "auto <ID> <0..1>", "get", "save <file>", "load <file>", "quit"}, " | ")
}
