// ABOUTME: Opens audio files as engine-format streams
// ABOUTME: Checks the path, detects the container and picks the decoder
package decode

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/Resonate-Protocol/resonate-engine/pkg/audio"
)

// Open decodes the file at path into a Stream producing channels at
// sampleRate. A missing path yields audio.ErrFileNotFound; anything that
// cannot be decoded yields audio.ErrUnsupportedFormat.
func Open(path string, channels, sampleRate int) (*Stream, error) {
	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: output format %dch/%dHz", audio.ErrConfiguration, channels, sampleRate)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", audio.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", audio.ErrFileNotFound, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", audio.ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", audio.ErrFileNotFound, path, err)
	}

	src, container, err := openSource(f, path)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", audio.ErrUnsupportedFormat, path, err)
	}

	stream, err := NewStream(src, channels, sampleRate)
	if err != nil {
		src.Close()
		return nil, err
	}

	total, known := stream.TotalFrames()
	log.Debugf("Opened %s as %s (%dHz, %dch, seekable=%v, frames=%d known=%v)",
		path, container, src.SampleRate(), src.Channels(), stream.Seekable(), total, known)
	return stream, nil
}

// openSource picks a decoder for f. On success the source owns f.
func openSource(f *os.File, path string) (Source, Container, error) {
	header := make([]byte, sniffLen)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, ContainerUnknown, fmt.Errorf("failed to read header: %w", err)
	}
	header = header[:n]
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, ContainerUnknown, fmt.Errorf("failed to rewind: %w", err)
	}

	container := Sniff(header)
	if container == ContainerUnknown {
		container = ContainerFromExt(path)
	}

	var src Source
	switch container {
	case ContainerWAV:
		src, err = NewWAVSource(f)
	case ContainerVorbis:
		src, err = NewVorbisSource(f)
	case ContainerMP3:
		src, err = NewMP3Source(f)
	case ContainerFLAC:
		src, err = NewFLACSource(f)
	case ContainerOpus:
		src, err = NewOpusSource(f, opusChannels(header))
	default:
		return nil, container, errors.New("unrecognized container (supported: wav, flac, mp3, ogg vorbis, ogg opus)")
	}
	if err != nil {
		return nil, container, err
	}
	return src, container, nil
}
