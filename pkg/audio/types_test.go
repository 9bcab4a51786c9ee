// ABOUTME: Tests for audio types
// ABOUTME: Tests sample conversion, gain and format validation
package audio

import (
	"errors"
	"math"
	"testing"
)

func TestSampleFromInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int16
		expected int32
	}{
		{"zero", 0, 0},
		{"positive", 100, 100 << 8},
		{"negative", -100, -100 << 8},
		{"max", 32767, 32767 << 8},
		{"min", -32768, -32768 << 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFromInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestSampleToInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int32
		expected int16
	}{
		{"zero", 0, 0},
		{"positive", 100 << 8, 100},
		{"negative", -100 << 8, -100},
		{"24bit positive", 1000000, 3906}, // 1000000 >> 8 = 3906
		{"24bit negative", -1000000, -3907},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleToInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestSampleTo24Bit(t *testing.T) {
	tests := []struct {
		name     string
		input    int32
		expected [3]byte
	}{
		{"zero", 0, [3]byte{0, 0, 0}},
		{"positive", 0x123456, [3]byte{0x56, 0x34, 0x12}},
		{"negative", -256, [3]byte{0x00, 0xFF, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleTo24Bit(tt.input)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestSampleFrom24Bit(t *testing.T) {
	tests := []struct {
		name     string
		input    [3]byte
		expected int32
	}{
		{"zero", [3]byte{0, 0, 0}, 0},
		{"positive", [3]byte{0x56, 0x34, 0x12}, 0x123456},
		{"negative", [3]byte{0x00, 0xFF, 0xFF}, -256},
		{"max positive", [3]byte{0xFF, 0xFF, 0x7F}, Max24Bit},
		{"max negative", [3]byte{0x00, 0x00, 0x80}, Min24Bit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFrom24Bit(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestRoundTrip16Bit(t *testing.T) {
	// Test that 16-bit samples survive round-trip conversion
	samples := []int16{0, 100, -100, 1000, -1000, 32767, -32768}

	for _, original := range samples {
		sample32 := SampleFromInt16(original)
		result := SampleToInt16(sample32)
		if result != original {
			t.Errorf("round-trip failed: %d -> %d -> %d", original, sample32, result)
		}
	}
}

func TestRoundTrip24Bit(t *testing.T) {
	// Test that 24-bit samples survive round-trip conversion
	samples := []int32{0, 100000, -100000, Max24Bit, Min24Bit}

	for _, original := range samples {
		bytes := SampleTo24Bit(original)
		result := SampleFrom24Bit(bytes)
		// Mask to 24-bit for comparison
		expected := original & 0xFFFFFF
		if expected&0x800000 != 0 {
			expected |= ^0xFFFFFF
		}
		if result != expected {
			t.Errorf("round-trip failed: %d -> %v -> %d (expected %d)", original, bytes, result, expected)
		}
	}
}

func TestScaleSample(t *testing.T) {
	tests := []struct {
		name     string
		sample   int32
		gain     float64
		expected int32
	}{
		{"unity", 1000, 1.0, 1000},
		{"half", 1000, 0.5, 500},
		{"silence", 1000, 0, 0},
		{"amplify", 1000, 1.2, 1200},
		{"clip positive", Max24Bit - 10, 2.0, Max24Bit},
		{"clip negative", Min24Bit + 10, 2.0, Min24Bit},
		{"huge gain positive", 1000, 1e16, Max24Bit},
		{"huge gain negative", -1000, 1e16, Min24Bit},
		{"max gain", 1, math.MaxFloat64, Max24Bit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScaleSample(tt.sample, tt.gain); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestApplyGain(t *testing.T) {
	samples := []int32{100, -100, Max24Bit}
	ApplyGain(samples, 1)
	if samples[0] != 100 || samples[1] != -100 || samples[2] != Max24Bit {
		t.Errorf("unity gain modified samples: %v", samples)
	}

	ApplyGain(samples, 0.5)
	if samples[0] != 50 || samples[1] != -50 {
		t.Errorf("half gain: got %v", samples)
	}
}

func TestSampleFromFloat(t *testing.T) {
	if got := SampleFromFloat(1.0); got != Max24Bit {
		t.Errorf("expected %d, got %d", Max24Bit, got)
	}
	if got := SampleFromFloat(-2.0); got != Min24Bit {
		t.Errorf("expected clamp to %d, got %d", Min24Bit, got)
	}
	if got := SampleFromFloat(0); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := SampleFromFloat(1e300); got != Max24Bit {
		t.Errorf("expected clamp to %d, got %d", Max24Bit, got)
	}
}

func TestFormatValidate(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		wantErr bool
	}{
		{"cd quality", Format{SampleRate: 44100, Channels: 2, BitDepth: 16}, false},
		{"hi-res", Format{SampleRate: 192000, Channels: 2, BitDepth: 24}, false},
		{"s32", Format{SampleRate: 48000, Channels: 1, BitDepth: 32}, false},
		{"zero rate", Format{SampleRate: 0, Channels: 2, BitDepth: 16}, true},
		{"zero channels", Format{SampleRate: 48000, Channels: 0, BitDepth: 16}, true},
		{"8-bit", Format{SampleRate: 48000, Channels: 2, BitDepth: 8}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.format.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrConfiguration) {
					t.Errorf("expected ErrConfiguration, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestFormatBytesPerFrame(t *testing.T) {
	f := Format{SampleRate: 48000, Channels: 2, BitDepth: 24}
	if got := f.BytesPerFrame(); got != 6 {
		t.Errorf("expected 6, got %d", got)
	}
	if got := f.String(); got != "48000Hz/2ch/24bit" {
		t.Errorf("unexpected String(): %s", got)
	}
}
