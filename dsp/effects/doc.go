// Package effects provides the stateless stages of the overdrive signal path.
//
//   - Overdrive: tanh waveshaping followed by a linear output gain.
//   - Mixer: wet/dry crossfade written back into the dry buffer.
//
// Both stages are memoryless, so every sample and every channel is processed
// independently. Hot paths are allocation-free and operate on float32
// channel slices in place.
package effects
