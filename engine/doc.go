// Package engine implements the overdrive audio processor.
//
// An [Engine] moves through Unprepared → Prepared → Processing → Released.
// The host calls [Engine.Prepare] once per stream format, [Engine.Process]
// once per audio buffer on its real-time goroutine, and [Engine.Release]
// when the stream stops. Prepare and Release must not run concurrently with
// Process.
//
// Per buffer the engine reads the parameter store once, copies the input
// into a pre-sized wet buffer, shapes it with tanh(drive*x)*gain, runs it
// through a high-pass then a low-pass state-variable filter, and crossfades
// it back into the input buffer. The dry path is never filtered.
//
// Calling Process while unprepared or released leaves the buffer untouched
// and counts it in [Stats.SkippedBuffers].
package engine
