// Package window generates the analysis windows used by the measurement
// packages before an FFT: rectangular, Hann, Blackman and a 5-term flat-top
// for amplitude-accurate harmonic readings.
package window
