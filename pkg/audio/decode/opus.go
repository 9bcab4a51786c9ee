// ABOUTME: Ogg Opus audio source
// ABOUTME: Decodes Opus streams at 48kHz; length is unknown and seeking is unsupported
package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/resonate-engine/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// Opus always decodes at 48kHz regardless of the original input rate
const opusSampleRate = 48000

// OpusSource reads from an Ogg Opus file
type OpusSource struct {
	file     *os.File
	stream   *opus.Stream
	channels int
	pcm16    []int16
}

// NewOpusSource creates a new Opus audio source. channels comes from the
// OpusHead packet since the stream does not expose it.
func NewOpusSource(f *os.File, channels int) (*OpusSource, error) {
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("unsupported Opus channel count: %d", channels)
	}
	stream, err := opus.NewStream(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus stream: %w", err)
	}

	return &OpusSource{
		file:     f,
		stream:   stream,
		channels: channels,
	}, nil
}

func (s *OpusSource) Read(samples []int32) (int, error) {
	want := len(samples) - len(samples)%s.channels
	if want == 0 {
		return 0, nil
	}
	if cap(s.pcm16) < want {
		s.pcm16 = make([]int16, want)
	}
	pcm16 := s.pcm16[:want]

	n, err := s.stream.Read(pcm16)
	if err != nil {
		if err == io.EOF {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("opus decode failed: %w", err)
	}

	// n is per channel
	actual := n * s.channels
	for i := 0; i < actual; i++ {
		samples[i] = audio.SampleFromInt16(pcm16[i])
	}
	return actual, nil
}

func (s *OpusSource) SampleRate() int { return opusSampleRate }
func (s *OpusSource) Channels() int   { return s.channels }

// Close frees the stream, which also closes the file.
func (s *OpusSource) Close() error {
	return s.stream.Close()
}
