// ABOUTME: Tests for Stream conversion, length and seeking
// ABOUTME: Uses in-memory sources plus generated WAV files
package decode

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Resonate-Protocol/resonate-engine/internal/testutils"
	"github.com/Resonate-Protocol/resonate-engine/pkg/audio"
)

// fakeSource produces frames whose samples equal frame*100+channel
type fakeSource struct {
	rate     int
	channels int
	frames   int
	pos      int
	known    bool
	readErr  error
	stall    bool
	closed   bool
}

func (s *fakeSource) Read(samples []int32) (int, error) {
	if s.readErr != nil {
		return 0, s.readErr
	}
	if s.stall {
		return 0, nil
	}
	if s.pos >= s.frames {
		return 0, io.EOF
	}
	n := min(len(samples)/s.channels, s.frames-s.pos)
	for i := 0; i < n; i++ {
		for ch := 0; ch < s.channels; ch++ {
			samples[i*s.channels+ch] = int32((s.pos+i)*100 + ch)
		}
	}
	s.pos += n
	return n * s.channels, nil
}

func (s *fakeSource) Frames() (uint64, bool) { return uint64(s.frames), s.known }
func (s *fakeSource) SampleRate() int        { return s.rate }
func (s *fakeSource) Channels() int          { return s.channels }
func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

type seekableFake struct {
	fakeSource
}

func (s *seekableFake) SeekFrame(frame uint64) error {
	s.pos = int(frame)
	return nil
}

func readAll(t *testing.T, s *Stream, chunkFrames int) []int32 {
	t.Helper()
	var out []int32
	buf := make([]int32, chunkFrames*s.Channels())
	for {
		n, err := s.ReadFrames(buf)
		out = append(out, buf[:n*s.Channels()]...)
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("ReadFrames failed: %v", err)
		}
	}
}

func TestStreamPassthrough(t *testing.T) {
	src := &fakeSource{rate: 48000, channels: 2, frames: 1000, known: true}
	s, err := NewStream(src, 2, 48000)
	if err != nil {
		t.Fatalf("NewStream failed: %v", err)
	}

	total, known := s.TotalFrames()
	if !known || total != 1000 {
		t.Fatalf("expected 1000 known frames, got %d (known=%v)", total, known)
	}

	out := readAll(t, s, 333)
	if len(out) != 2000 {
		t.Fatalf("expected 2000 samples, got %d", len(out))
	}
	for i := 0; i < 1000; i++ {
		if out[i*2] != int32(i*100) || out[i*2+1] != int32(i*100+1) {
			t.Fatalf("frame %d: got %d,%d", i, out[i*2], out[i*2+1])
		}
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if !src.closed {
		t.Error("expected source to be closed")
	}
}

func TestStreamExactLengthAfterResampling(t *testing.T) {
	tests := []struct {
		name    string
		inRate  int
		outRate int
		frames  int
		want    int
	}{
		{"44.1k to 48k", 44100, 48000, 44100, 48000},
		{"48k to 44.1k", 48000, 44100, 1000, 919},  // 918.75 rounds up
		{"22.05k to 48k", 22050, 48000, 999, 2175}, // 2174.69...
		{"8k to 48k", 8000, 48000, 10, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{rate: tt.inRate, channels: 1, frames: tt.frames, known: true}
			s, err := NewStream(src, 2, tt.outRate)
			if err != nil {
				t.Fatalf("NewStream failed: %v", err)
			}
			total, _ := s.TotalFrames()
			if total != uint64(tt.want) {
				t.Fatalf("expected total %d, got %d", tt.want, total)
			}
			out := readAll(t, s, 256)
			if len(out)/2 != tt.want {
				t.Errorf("expected %d frames, got %d", tt.want, len(out)/2)
			}
		})
	}
}

func TestStreamUnknownLength(t *testing.T) {
	src := &fakeSource{rate: 48000, channels: 2, frames: 500}
	s, _ := NewStream(src, 2, 48000)

	if _, known := s.TotalFrames(); known {
		t.Error("expected unknown length")
	}
	if s.Seekable() {
		t.Error("expected plain source to be non-seekable")
	}
	if err := s.SeekFrame(10); !errors.Is(err, audio.ErrSeekNotSupported) {
		t.Errorf("expected ErrSeekNotSupported, got %v", err)
	}

	out := readAll(t, s, 64)
	if len(out) != 1000 {
		t.Errorf("expected 1000 samples, got %d", len(out))
	}
}

func TestStreamSeek(t *testing.T) {
	src := &seekableFake{fakeSource{rate: 48000, channels: 2, frames: 1000, known: true}}
	s, _ := NewStream(src, 2, 48000)

	if !s.Seekable() {
		t.Fatal("expected stream to be seekable")
	}
	if err := s.SeekFrame(600); err != nil {
		t.Fatalf("SeekFrame failed: %v", err)
	}
	out := readAll(t, s, 100)
	if len(out) != 800 {
		t.Fatalf("expected 400 frames after seek, got %d", len(out)/2)
	}
	if out[0] != 60000 {
		t.Errorf("expected first sample 60000, got %d", out[0])
	}

	// Past the end clamps to the end
	if err := s.SeekFrame(5000); err != nil {
		t.Fatalf("SeekFrame past end failed: %v", err)
	}
	buf := make([]int32, 20)
	if n, err := s.ReadFrames(buf); n != 0 || err != io.EOF {
		t.Errorf("expected EOF at end, got n=%d err=%v", n, err)
	}
}

func TestStreamReadError(t *testing.T) {
	boom := errors.New("corrupt frame")
	src := &fakeSource{rate: 48000, channels: 2, frames: 100, readErr: boom}
	s, _ := NewStream(src, 2, 48000)

	_, err := s.ReadFrames(make([]int32, 64))
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped read error, got %v", err)
	}
}

func TestStreamStall(t *testing.T) {
	src := &fakeSource{rate: 48000, channels: 2, frames: 100, stall: true}
	s, _ := NewStream(src, 2, 48000)

	_, err := s.ReadFrames(make([]int32, 64))
	if !errors.Is(err, io.ErrNoProgress) {
		t.Errorf("expected io.ErrNoProgress, got %v", err)
	}
}

func TestMixChannels(t *testing.T) {
	tests := []struct {
		name     string
		src      []int32
		inCh     int
		outCh    int
		expected []int32
	}{
		{"same", []int32{1, 2, 3, 4}, 2, 2, []int32{1, 2, 3, 4}},
		{"mono to stereo", []int32{5, 7}, 1, 2, []int32{5, 5, 7, 7}},
		{"stereo to mono", []int32{10, 20, -4, 4}, 2, 1, []int32{15, 0}},
		{"stereo to quad", []int32{1, 2}, 2, 4, []int32{1, 2, 1, 2}},
		{"5.1 to stereo", []int32{6, 3, 9, 6, 0, 0}, 6, 2, []int32{5, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mixChannels(nil, tt.src, tt.inCh, tt.outCh)
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Fatalf("expected %v, got %v", tt.expected, got)
				}
			}
		})
	}
}

func TestScaleFrames(t *testing.T) {
	tests := []struct {
		frames, num, den, expected uint64
	}{
		{44100, 48000, 44100, 48000},
		{1, 1, 2, 1}, // 0.5 rounds up
		{1, 1, 3, 0},
		{0, 48000, 44100, 0},
	}
	for _, tt := range tests {
		if got := scaleFrames(tt.frames, tt.num, tt.den); got != tt.expected {
			t.Errorf("scaleFrames(%d, %d, %d) = %d, want %d", tt.frames, tt.num, tt.den, got, tt.expected)
		}
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "noise.xyz")
	if err := os.WriteFile(garbage, []byte("definitely not audio"), 0o600); err != nil {
		t.Fatal(err)
	}
	badWAV := filepath.Join(dir, "broken.wav")
	if err := os.WriteFile(badWAV, []byte("RIFF\x00\x00\x00\x00WAVEjunk"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing", filepath.Join(dir, "missing.wav"), audio.ErrFileNotFound},
		{"directory", dir, audio.ErrUnsupportedFormat},
		{"unknown container", garbage, audio.ErrUnsupportedFormat},
		{"corrupt wav", badWAV, audio.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.path, 2, 48000)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if s != nil {
				t.Error("expected nil stream on error")
			}
		})
	}

	if _, err := Open(garbage, 0, 48000); !errors.Is(err, audio.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for zero channels, got %v", err)
	}
}

func TestOpenWAV(t *testing.T) {
	dir := t.TempDir()
	path := testutils.WriteWAV(t, dir, "ramp.wav", 48000, 2, 4800, testutils.Ramp)

	s, err := Open(path, 2, 48000)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	rate, channels := s.NativeFormat()
	if rate != 48000 || channels != 2 {
		t.Errorf("unexpected native format %dHz/%dch", rate, channels)
	}
	total, known := s.TotalFrames()
	if !known || total != 4800 {
		t.Fatalf("expected 4800 known frames, got %d (known=%v)", total, known)
	}

	out := readAll(t, s, 1000)
	if len(out) != 9600 {
		t.Fatalf("expected 9600 samples, got %d", len(out))
	}
	// float round trip through the decoder may be off by a few LSBs
	for _, frame := range []int{0, 1, 100, 4799} {
		want := int32(frame) << 8
		got := out[frame*2]
		if diff := got - want; diff < -512 || diff > 512 {
			t.Errorf("frame %d: expected ~%d, got %d", frame, want, got)
		}
	}
}

func TestOpenWAVConverts(t *testing.T) {
	dir := t.TempDir()
	path := testutils.WriteWAV(t, dir, "mono.wav", 44100, 1, 4410, testutils.Constant(1000))

	s, err := Open(path, 2, 48000)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	total, _ := s.TotalFrames()
	if total != 4800 {
		t.Fatalf("expected 4800 frames, got %d", total)
	}
	out := readAll(t, s, 512)
	if len(out) != 9600 {
		t.Fatalf("expected 9600 samples, got %d", len(out))
	}
	if out[0] != out[1] {
		t.Errorf("expected mono duplicated to both channels, got %d,%d", out[0], out[1])
	}

	if err := s.SeekFrame(2400); err != nil {
		t.Fatalf("SeekFrame failed: %v", err)
	}
	if rest := readAll(t, s, 512); len(rest) != 4800 {
		t.Errorf("expected 2400 frames after seek, got %d", len(rest)/2)
	}
}
