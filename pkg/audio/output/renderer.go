// ABOUTME: Bridges a RenderFunc to packed device byte buffers
// ABOUTME: Works in chunks through a preallocated scratch buffer
package output

import (
	"github.com/Resonate-Protocol/resonate-engine/pkg/audio"
	"github.com/Resonate-Protocol/resonate-engine/pkg/audio/encode"
)

type renderer struct {
	render     RenderFunc
	encoder    *encode.PCMEncoder
	channels   int
	frameBytes int
	scratch    []int32
}

func newRenderer(format audio.Format, maxFrames int, render RenderFunc) (*renderer, error) {
	encoder, err := encode.NewPCM(format.BitDepth)
	if err != nil {
		return nil, err
	}
	return &renderer{
		render:     render,
		encoder:    encoder,
		channels:   format.Channels,
		frameBytes: format.BytesPerFrame(),
		scratch:    make([]int32, max(1, maxFrames)*format.Channels),
	}, nil
}

// fill renders whole frames into dst and returns the bytes written
func (r *renderer) fill(dst []byte) int {
	off := 0
	for off+r.frameBytes <= len(dst) {
		frames := min((len(dst)-off)/r.frameBytes, len(r.scratch)/r.channels)
		buf := r.scratch[:frames*r.channels]
		r.render(buf)
		off += r.encoder.EncodeInto(dst[off:], buf)
	}
	return off
}
