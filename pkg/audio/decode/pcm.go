// ABOUTME: PCM byte decoder
// ABOUTME: Converts 16-bit and 24-bit little-endian PCM bytes to int32 samples
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/resonate-engine/pkg/audio"
)

// PCMDecoder converts packed little-endian PCM bytes to int32 samples
type PCMDecoder struct {
	bitDepth int
}

// NewPCM creates a new PCM decoder
func NewPCM(bitDepth int) (*PCMDecoder, error) {
	if bitDepth != 16 && bitDepth != 24 {
		return nil, fmt.Errorf("%w: PCM bit depth %d (supported: 16, 24)", audio.ErrUnsupportedFormat, bitDepth)
	}

	return &PCMDecoder{
		bitDepth: bitDepth,
	}, nil
}

// BytesPerSample returns the packed sample width
func (d *PCMDecoder) BytesPerSample() int {
	return d.bitDepth / 8
}

// DecodeInto converts data into dst and returns the samples written.
// Trailing bytes that do not form a whole sample are ignored.
func (d *PCMDecoder) DecodeInto(dst []int32, data []byte) int {
	if d.bitDepth == 24 {
		n := min(len(data)/3, len(dst))
		for i := 0; i < n; i++ {
			dst[i] = audio.SampleFrom24Bit([3]byte{data[i*3], data[i*3+1], data[i*3+2]})
		}
		return n
	}

	n := min(len(data)/2, len(dst))
	for i := 0; i < n; i++ {
		dst[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(data[i*2:])))
	}
	return n
}

// Decode converts PCM bytes to a new slice of int32 samples
func (d *PCMDecoder) Decode(data []byte) []int32 {
	samples := make([]int32, len(data)/d.BytesPerSample())
	d.DecodeInto(samples, data)
	return samples
}
