// ABOUTME: WAV and Ogg Vorbis sources backed by beep decoders
// ABOUTME: Converts beep's float frames to int32 samples in 24-bit range
package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/resonate-engine/pkg/audio"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// beepSource adapts a beep.StreamSeekCloser to Source
type beepSource struct {
	streamer   beep.StreamSeekCloser
	sampleRate int
	channels   int
	buf        [][2]float64
}

// NewWAVSource creates a source from a RIFF/WAVE file
func NewWAVSource(f *os.File) (Source, error) {
	streamer, format, err := wav.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode WAV: %w", err)
	}
	return newBeepSource(streamer, format), nil
}

// NewVorbisSource creates a source from an Ogg Vorbis file
func NewVorbisSource(f *os.File) (Source, error) {
	streamer, format, err := vorbis.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Vorbis: %w", err)
	}
	return newBeepSource(streamer, format), nil
}

func newBeepSource(streamer beep.StreamSeekCloser, format beep.Format) *beepSource {
	// beep hands out stereo frames; mono files are duplicated into both.
	channels := 2
	if format.NumChannels == 1 {
		channels = 1
	}
	return &beepSource{
		streamer:   streamer,
		sampleRate: int(format.SampleRate),
		channels:   channels,
	}
}

func (s *beepSource) Read(samples []int32) (int, error) {
	frames := len(samples) / s.channels
	if frames == 0 {
		return 0, nil
	}
	if cap(s.buf) < frames {
		s.buf = make([][2]float64, frames)
	}
	buf := s.buf[:frames]

	n, ok := s.streamer.Stream(buf)
	for i := 0; i < n; i++ {
		if s.channels == 1 {
			samples[i] = audio.SampleFromFloat(buf[i][0])
			continue
		}
		samples[i*2] = audio.SampleFromFloat(buf[i][0])
		samples[i*2+1] = audio.SampleFromFloat(buf[i][1])
	}
	if !ok {
		if err := s.streamer.Err(); err != nil {
			return n * s.channels, err
		}
		return n * s.channels, io.EOF
	}
	return n * s.channels, nil
}

func (s *beepSource) SeekFrame(frame uint64) error {
	return s.streamer.Seek(int(frame))
}

func (s *beepSource) Frames() (uint64, bool) {
	n := s.streamer.Len()
	if n < 0 {
		return 0, false
	}
	return uint64(n), true
}

func (s *beepSource) SampleRate() int { return s.sampleRate }
func (s *beepSource) Channels() int   { return s.channels }
func (s *beepSource) Close() error {
	return s.streamer.Close()
}
