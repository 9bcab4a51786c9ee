// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, sample conversions, gain and error kinds
// Package audio provides fundamental audio types and utilities.
//
// Samples are carried as int32 values in the signed 24-bit range no matter
// what the source or device bit depth is. Decoders widen into that range and
// output backends narrow out of it.
//
// This package defines:
//   - Format: sample rate, channel count and device bit depth
//   - sample conversions between int16, packed 24-bit, float and int32
//   - ScaleSample/ApplyGain: linear gain with clipping at the 24-bit bounds
//   - the Err* values every other package wraps with %w
//
// Example:
//
//	format := audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 24}
//	if err := format.Validate(); err != nil {
//	    return err
//	}
//	sample24 := audio.SampleFromInt16(sample16)
package audio
