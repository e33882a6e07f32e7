// Package buffer provides a planar multi-channel float32 audio buffer with
// reuse-friendly semantics. Processors accept raw [][]float32 channel slices;
// Audio is a convenience that owns that storage and keeps its capacity across
// blocks so real-time paths can copy into it without allocating.
package buffer
