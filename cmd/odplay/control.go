package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-overdrive/params"
	"github.com/cwbudde/algo-overdrive/state"
)

var errQuit = errors.New("quit")

// controller applies text commands to the parameter store from the control
// goroutine while the audio goroutine reads it.
type controller struct {
	store *params.Store
	out   io.Writer
}

func newController(store *params.Store, out io.Writer) *controller {
	c := &controller{store: store, out: out}
	store.Subscribe(func(id params.ID, v float32) {
		d, _ := params.Lookup(id)
		fmt.Fprintf(c.out, "%s = %s\n", id, d.Format(v))
	})
	return c
}

// loop reads commands until EOF or quit. Command errors are reported and
// reading continues.
func (c *controller) loop(in io.Reader, errOut io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		err := c.handle(scanner.Text())
		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil:
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

func (c *controller) handle(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch strings.ToLower(fields[0]) {
	case "set":
		if len(fields) < 3 {
			return fmt.Errorf("usage: set <ID> <value>")
		}
		d, err := lookup(fields[1])
		if err != nil {
			return err
		}
		v, err := d.Parse(strings.Join(fields[2:], " "))
		if err != nil {
			return err
		}
		return c.store.Set(d.ID, v)
	case "knob":
		d, p, err := unitArgs(fields)
		if err != nil {
			return err
		}
		return c.store.Set(d.ID, d.Snap(d.FromPosition(p)))
	case "auto":
		d, p, err := unitArgs(fields)
		if err != nil {
			return err
		}
		return c.store.SetNormalized(d.ID, p)
	case "get":
		for _, d := range params.Layout() {
			v := c.store.Get(d.ID)
			fmt.Fprintf(c.out, "%-8s %-10s knob %.3f  auto %.3f\n",
				d.ID, d.Format(v), d.Position(v), c.store.Normalized(d.ID))
		}
		return nil
	case "save":
		if len(fields) != 2 {
			return fmt.Errorf("usage: save <file>")
		}
		if err := os.WriteFile(fields[1], state.Save(c.store), 0o644); err != nil {
			return fmt.Errorf("save: %w", err)
		}
		return nil
	case "load":
		if len(fields) != 2 {
			return fmt.Errorf("usage: load <file>")
		}
		data, err := os.ReadFile(fields[1])
		if err != nil {
			return fmt.Errorf("load: %w", err)
		}
		return state.Load(c.store, data)
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (%s)", fields[0], usageLine())
	}
}

func lookup(name string) (params.Descriptor, error) {
	d, ok := params.Lookup(params.ID(strings.ToUpper(name)))
	if !ok {
		return params.Descriptor{}, fmt.Errorf("%s: %w", name, params.ErrUnknownParameter)
	}
	return d, nil
}

// unitArgs parses "<cmd> <ID> <position>" with position in [0, 1].
func unitArgs(fields []string) (params.Descriptor, float64, error) {
	if len(fields) != 3 {
		return params.Descriptor{}, 0, fmt.Errorf("usage: %s <ID> <0..1>", fields[0])
	}

	d, err := lookup(fields[1])
	if err != nil {
		return params.Descriptor{}, 0, err
	}

	p, err := strconv.ParseFloat(fields[2], 64)
	if err != nil || p < 0 || p > 1 {
		return params.Descriptor{}, 0, fmt.Errorf("%s %s: position must be in [0, 1]: %q", fields[0], d.ID, fields[2])
	}

	return d, p, nil
}
