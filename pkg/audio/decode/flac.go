// ABOUTME: FLAC audio source
// ABOUTME: Decodes FLAC frames to int32 samples and seeks by sample number
package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"
)

// FLACSource reads from a FLAC file
type FLACSource struct {
	file       *os.File
	stream     *flac.Stream
	sampleRate int
	channels   int
	bitDepth   int
	nsamples   uint64

	// Decoded samples of the current frame not yet handed out
	pending []int32
	offset  int
	eof     bool
}

// NewFLACSource creates a new FLAC audio source
func NewFLACSource(f *os.File) (*FLACSource, error) {
	stream, err := flac.NewSeek(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	return &FLACSource{
		file:       f,
		stream:     stream,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		bitDepth:   int(info.BitsPerSample),
		nsamples:   info.NSamples,
	}, nil
}

func (s *FLACSource) Read(samples []int32) (int, error) {
	samplesRead := 0
	limit := len(samples) - len(samples)%s.channels

	for samplesRead < limit {
		if s.offset < len(s.pending) {
			n := copy(samples[samplesRead:limit], s.pending[s.offset:])
			s.offset += n
			samplesRead += n
			continue
		}
		if s.eof {
			break
		}
		if err := s.decodeFrame(); err != nil {
			if err == io.EOF {
				s.eof = true
				break
			}
			return samplesRead, err
		}
	}

	if samplesRead == 0 && s.eof {
		return 0, io.EOF
	}
	return samplesRead, nil
}

// decodeFrame parses the next FLAC frame into pending
func (s *FLACSource) decodeFrame() error {
	frame, err := s.stream.ParseNext()
	if err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return fmt.Errorf("flac decode error: %w", err)
	}

	blockSize := int(frame.BlockSize)
	s.pending = s.pending[:0]
	for i := 0; i < blockSize; i++ {
		for ch := 0; ch < s.channels; ch++ {
			s.pending = append(s.pending, s.scale(frame.Subframes[ch].Samples[i]))
		}
	}
	s.offset = 0
	return nil
}

// scale moves a sample of the stream's bit depth into the 24-bit range
func (s *FLACSource) scale(sample int32) int32 {
	shift := s.bitDepth - 24
	if shift > 0 {
		return sample >> shift
	}
	return sample << -shift
}

func (s *FLACSource) SeekFrame(frame uint64) error {
	s.pending = s.pending[:0]
	s.offset = 0
	s.eof = false

	if s.nsamples > 0 && frame >= s.nsamples {
		s.eof = true
		return nil
	}

	start, err := s.stream.Seek(frame)
	if err != nil {
		return fmt.Errorf("flac seek to sample %d failed: %w", frame, err)
	}

	// Seek lands on the frame containing the target; drop the lead-in.
	skip := int(frame-start) * s.channels
	for skip > 0 {
		if err := s.decodeFrame(); err != nil {
			if err == io.EOF {
				s.eof = true
				return nil
			}
			return err
		}
		n := min(skip, len(s.pending))
		s.offset = n
		skip -= n
	}
	return nil
}

func (s *FLACSource) Frames() (uint64, bool) {
	return s.nsamples, s.nsamples > 0
}

func (s *FLACSource) SampleRate() int { return s.sampleRate }
func (s *FLACSource) Channels() int   { return s.channels }
func (s *FLACSource) Close() error {
	return s.file.Close()
}
