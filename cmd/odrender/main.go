// Command odrender runs audio through the overdrive engine offline.
//
// Usage:
//
//	odrender [flags]
//
// Input is a WAV file (-in) or, without one, a generated test tone. The
// result can be written to a WAV file (-out) and is analysed for harmonic
// distortion. Parameter flags accept display strings such as "800 Hz".
//
// Examples:
//
//	odrender -drive 8 -mix 100 -report
//	odrender -in guitar.wav -out crunch.wav -drive 6.5 -hpf "120 Hz"
//	odrender -state preset.odrv -response
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
