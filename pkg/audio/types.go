// ABOUTME: Audio type definitions
// ABOUTME: Defines PCM formats, sample conversions and volume scaling
package audio

import "fmt"

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes an interleaved PCM stream
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Validate checks that the format can drive a playback device
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrConfiguration, f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("%w: channel count must be positive, got %d", ErrConfiguration, f.Channels)
	}
	switch f.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("%w: unsupported bit depth %d (supported: 16, 24, 32)", ErrConfiguration, f.BitDepth)
	}
	return nil
}

// BytesPerSample returns the packed size of one sample
func (f Format) BytesPerSample() int {
	return f.BitDepth / 8
}

// BytesPerFrame returns the packed size of one interleaved frame
func (f Format) BytesPerFrame() int {
	return f.BytesPerSample() * f.Channels
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitDepth)
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit (or 16-bit) to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	// Left-shift to position 16-bit value in upper bits
	return int32(sample) << 8
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

// SampleFromFloat converts a [-1, 1] float sample to the 24-bit range
func SampleFromFloat(f float64) int32 {
	return clampFloat(f * Max24Bit)
}

// SampleToFloat converts a 24-bit range sample to [-1, 1]
func SampleToFloat(sample int32) float32 {
	return float32(sample) / Max24Bit
}

// ClampSample clamps a widened sample to the 24-bit range
func ClampSample(v int64) int32 {
	if v > Max24Bit {
		return Max24Bit
	}
	if v < Min24Bit {
		return Min24Bit
	}
	return int32(v)
}

// clampFloat clamps before converting; float to int conversions of out of
// range values are implementation-defined.
func clampFloat(v float64) int32 {
	if v > Max24Bit {
		return Max24Bit
	}
	if v < Min24Bit {
		return Min24Bit
	}
	return int32(v)
}

// ScaleSample multiplies a sample by a linear gain with clipping protection
func ScaleSample(sample int32, gain float64) int32 {
	return clampFloat(float64(sample) * gain)
}

// ApplyGain scales samples in place. A gain of exactly 1 leaves them untouched.
func ApplyGain(samples []int32, gain float64) {
	if gain == 1 {
		return
	}
	for i, s := range samples {
		samples[i] = ScaleSample(s, gain)
	}
}
