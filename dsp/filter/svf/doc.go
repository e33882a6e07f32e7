// Package svf provides a topology-preserving-transform (zero-delay feedback)
// state-variable filter.
//
// A [Filter] produces one response type (low-pass, high-pass or band-pass)
// from two integrator registers kept per channel. State carries across
// blocks but never across channels, and is cleared by [Filter.Prepare] and
// [Filter.Reset].
//
// Resonance follows the usual convention where 1/sqrt(2) gives a maximally
// flat (Butterworth) response; lower values soften the knee.
package svf
