// ABOUTME: Audio encoder package for packing PCM into device buffers
// ABOUTME: Provides the PCM encoder used by the output backends
// Package encode packs samples for audio devices.
//
// Supports: PCM (16-bit, 24-bit packed, 32-bit)
//
// The encoder accepts int32 samples in 24-bit range. EncodeInto writes into
// a caller-owned buffer so it is safe to use from a device callback.
//
// Example:
//
//	encoder, err := encode.NewPCM(24)
//	n := encoder.EncodeInto(deviceBuf, samples)
package encode
