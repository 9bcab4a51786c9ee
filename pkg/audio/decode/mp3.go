// ABOUTME: MP3 audio source
// ABOUTME: Decodes MP3 files to int32 samples with byte-offset seeking
package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// mp3 decoder output is always 16-bit stereo
const mp3BytesPerFrame = 4

// MP3Source reads from an MP3 file
type MP3Source struct {
	file    *os.File
	decoder *mp3.Decoder
	pcm     *PCMDecoder
	buf     []byte
}

// NewMP3Source creates a new MP3 audio source
func NewMP3Source(f *os.File) (*MP3Source, error) {
	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}
	pcm, _ := NewPCM(16)

	return &MP3Source{
		file:    f,
		decoder: decoder,
		pcm:     pcm,
	}, nil
}

func (s *MP3Source) Read(samples []int32) (int, error) {
	// Whole frames only so a short read never splits a channel pair
	numBytes := (len(samples) / 2) * mp3BytesPerFrame
	if numBytes == 0 {
		return 0, nil
	}
	if cap(s.buf) < numBytes {
		s.buf = make([]byte, numBytes)
	}
	buf := s.buf[:numBytes]

	n, err := io.ReadFull(s.decoder, buf)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	n -= n % mp3BytesPerFrame
	read := s.pcm.DecodeInto(samples, buf[:n])
	if err != nil && err != io.EOF {
		return read, fmt.Errorf("mp3 decode error: %w", err)
	}
	return read, err
}

func (s *MP3Source) SeekFrame(frame uint64) error {
	if _, err := s.decoder.Seek(int64(frame)*mp3BytesPerFrame, io.SeekStart); err != nil {
		return fmt.Errorf("mp3 seek failed: %w", err)
	}
	return nil
}

func (s *MP3Source) Frames() (uint64, bool) {
	length := s.decoder.Length()
	if length < 0 {
		return 0, false
	}
	return uint64(length / mp3BytesPerFrame), true
}

func (s *MP3Source) SampleRate() int { return s.decoder.SampleRate() }
func (s *MP3Source) Channels() int   { return 2 }
func (s *MP3Source) Close() error {
	return s.file.Close()
}
