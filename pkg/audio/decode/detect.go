// ABOUTME: Container detection for audio files
// ABOUTME: Sniffs magic bytes and falls back to the file extension
package decode

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Container identifies a supported file format
type Container int

const (
	ContainerUnknown Container = iota
	ContainerWAV
	ContainerFLAC
	ContainerMP3
	ContainerVorbis
	ContainerOpus
)

// sniffLen is enough for an Ogg first page header plus the codec id packet
const sniffLen = 128

func (c Container) String() string {
	switch c {
	case ContainerWAV:
		return "wav"
	case ContainerFLAC:
		return "flac"
	case ContainerMP3:
		return "mp3"
	case ContainerVorbis:
		return "vorbis"
	case ContainerOpus:
		return "opus"
	default:
		return "unknown"
	}
}

// Sniff identifies the container from the leading bytes of a file
func Sniff(header []byte) Container {
	switch {
	case len(header) >= 12 && bytes.Equal(header[0:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE")):
		return ContainerWAV
	case bytes.HasPrefix(header, []byte("fLaC")):
		return ContainerFLAC
	case bytes.HasPrefix(header, []byte("OggS")):
		return sniffOgg(header)
	case bytes.HasPrefix(header, []byte("ID3")):
		return ContainerMP3
	case len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0:
		// MPEG audio frame sync
		return ContainerMP3
	}
	return ContainerUnknown
}

// sniffOgg looks at the first packet of the first page to tell codecs apart
func sniffOgg(header []byte) Container {
	payload, ok := oggFirstPacket(header)
	if !ok {
		return ContainerUnknown
	}
	switch {
	case bytes.HasPrefix(payload, []byte("OpusHead")):
		return ContainerOpus
	case bytes.HasPrefix(payload, []byte("\x01vorbis")):
		return ContainerVorbis
	}
	return ContainerUnknown
}

// oggFirstPacket returns the payload that follows the first page header
func oggFirstPacket(header []byte) ([]byte, bool) {
	// 27 fixed header bytes, then the segment table
	if len(header) < 27 {
		return nil, false
	}
	start := 27 + int(header[26])
	if len(header) <= start {
		return nil, false
	}
	return header[start:], true
}

// opusChannels reads the output channel count from an OpusHead packet
func opusChannels(header []byte) int {
	payload, ok := oggFirstPacket(header)
	if !ok || len(payload) < 10 || !bytes.HasPrefix(payload, []byte("OpusHead")) {
		return 0
	}
	return int(payload[9])
}

// ContainerFromExt guesses the container from a file extension
func ContainerFromExt(path string) Container {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return ContainerWAV
	case ".flac":
		return ContainerFLAC
	case ".mp3":
		return ContainerMP3
	case ".ogg", ".oga":
		return ContainerVorbis
	case ".opus":
		return ContainerOpus
	}
	return ContainerUnknown
}
