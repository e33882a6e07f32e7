// Package params holds the five user-controllable values of the overdrive.
//
// A [Store] is written by the control context (UI, automation) and read by
// the audio context. Every parameter is an independent atomic float32, so
// reads never block or allocate and the latest write always wins. A reader
// may observe values from different write generations within one snapshot;
// the audio engine reads once per buffer, so the mix self-heals on the next
// buffer.
//
// [Layout] describes each parameter's range, default, display interval and
// knob skew, which a control surface uses to snap, format and position its
// widgets.
package params
