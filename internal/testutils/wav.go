// ABOUTME: WAV fixture writer for tests
// ABOUTME: Produces 16-bit PCM RIFF files with predictable sample values
package testutils

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// SampleFunc returns the 16-bit sample for a frame and channel.
type SampleFunc func(frame, channel int) int16

// Ramp encodes the frame index (mod 32768) in every channel.
func Ramp(frame, channel int) int16 {
	return int16(frame % 32768)
}

// Constant returns a SampleFunc that always yields v.
func Constant(v int16) SampleFunc {
	return func(int, int) int16 { return v }
}

// WriteWAV writes a 16-bit PCM WAV file into dir and returns its path.
func WriteWAV(t testing.TB, dir, name string, rate, channels, frames int, fn SampleFunc) string {
	t.Helper()

	dataLen := frames * channels * 2
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(rate))
	binary.Write(&buf, binary.LittleEndian, uint32(rate*channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	for f := 0; f < frames; f++ {
		for ch := 0; ch < channels; ch++ {
			binary.Write(&buf, binary.LittleEndian, fn(f, ch))
		}
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("unable to write %s: %v", path, err)
	}
	return path
}
