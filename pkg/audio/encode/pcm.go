// ABOUTME: PCM audio encoder
// ABOUTME: Packs int32 samples into 16, 24 or 32-bit little-endian device buffers
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/resonate-engine/pkg/audio"
)

// PCMEncoder encodes PCM audio
type PCMEncoder struct {
	bitDepth int
}

// NewPCM creates a new PCM encoder
func NewPCM(bitDepth int) (*PCMEncoder, error) {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: unsupported bit depth: %d (supported: 16, 24, 32)", audio.ErrConfiguration, bitDepth)
	}

	return &PCMEncoder{
		bitDepth: bitDepth,
	}, nil
}

// BytesPerSample returns the packed sample width
func (e *PCMEncoder) BytesPerSample() int {
	return e.bitDepth / 8
}

// EncodeInto packs samples into dst and returns the bytes written. Samples
// that do not fit are dropped; nothing is allocated.
func (e *PCMEncoder) EncodeInto(dst []byte, samples []int32) int {
	n := min(len(samples), len(dst)/e.BytesPerSample())

	switch e.bitDepth {
	case 32:
		for i := 0; i < n; i++ {
			// Shift 24-bit value to upper bits of 32-bit container
			binary.LittleEndian.PutUint32(dst[i*4:], uint32(samples[i]<<8))
		}
	case 24:
		for i := 0; i < n; i++ {
			b := audio.SampleTo24Bit(samples[i])
			dst[i*3] = b[0]
			dst[i*3+1] = b[1]
			dst[i*3+2] = b[2]
		}
	default:
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint16(dst[i*2:], uint16(audio.SampleToInt16(samples[i])))
		}
	}

	return n * e.BytesPerSample()
}

// Encode converts int32 samples to a new PCM byte slice
func (e *PCMEncoder) Encode(samples []int32) []byte {
	output := make([]byte, len(samples)*e.BytesPerSample())
	e.EncodeInto(output, samples)
	return output
}
