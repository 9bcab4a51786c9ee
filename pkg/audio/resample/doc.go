// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts audio between different sample rates in streaming chunks
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation for converting between sample rates.
// Handles both upsampling and downsampling. The resampler keeps one frame of
// history so a stream fed in arbitrary chunk sizes produces the same output
// as the whole stream fed at once.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	out = r.Process(chunk, out[:0])
//	...
//	out = r.Flush(out)
package resample
