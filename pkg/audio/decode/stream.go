// ABOUTME: Converts a native source to the engine's channel count and rate
// ABOUTME: Keeps an exact output length when the native length is known
package decode

import (
	"errors"
	"fmt"
	"io"
	"math/bits"

	"github.com/Resonate-Protocol/resonate-engine/pkg/audio"
	"github.com/Resonate-Protocol/resonate-engine/pkg/audio/resample"
)

const (
	// readChunkFrames bounds a single native read
	readChunkFrames = 4096

	// maxZeroReads is how many consecutive empty reads count as a stall
	maxZeroReads = 100
)

// Stream yields frames from a Source in the output format. It is finite and
// not restartable except through SeekFrame.
type Stream struct {
	src         Source
	inRate      int
	inChannels  int
	outRate     int
	outChannels int
	resampler   *resample.Resampler

	readBuf []int32
	mixBuf  []int32
	pending []int32
	offset  int

	total   uint64
	known   bool
	emitted uint64

	srcEOF    bool
	flushed   bool
	zeroReads int
}

// NewStream wraps src so it produces outChannels at outRate.
func NewStream(src Source, outChannels, outRate int) (*Stream, error) {
	if outChannels <= 0 || outRate <= 0 {
		return nil, fmt.Errorf("%w: output format %dch/%dHz", audio.ErrConfiguration, outChannels, outRate)
	}
	inRate, inChannels := src.SampleRate(), src.Channels()
	if inRate <= 0 || inChannels <= 0 {
		return nil, fmt.Errorf("%w: source reports %dch/%dHz", audio.ErrUnsupportedFormat, inChannels, inRate)
	}

	s := &Stream{
		src:         src,
		inRate:      inRate,
		inChannels:  inChannels,
		outRate:     outRate,
		outChannels: outChannels,
		resampler:   resample.New(inRate, outRate, outChannels),
		readBuf:     make([]int32, readChunkFrames*inChannels),
	}
	if l, ok := src.(Lengther); ok {
		if frames, known := l.Frames(); known {
			s.total = scaleFrames(frames, uint64(outRate), uint64(inRate))
			s.known = true
		}
	}
	return s, nil
}

// scaleFrames returns frames*num/den rounded half up
func scaleFrames(frames, num, den uint64) uint64 {
	hi, lo := bits.Mul64(frames, num)
	lo, carry := bits.Add64(lo, den/2, 0)
	hi += carry
	if hi >= den {
		return ^uint64(0)
	}
	q, _ := bits.Div64(hi, lo, den)
	return q
}

// TotalFrames returns the output length in frames when known
func (s *Stream) TotalFrames() (uint64, bool) {
	return s.total, s.known
}

// Seekable reports whether SeekFrame is supported
func (s *Stream) Seekable() bool {
	_, ok := s.src.(Seeker)
	return ok
}

// Channels returns the output channel count
func (s *Stream) Channels() int { return s.outChannels }

// SampleRate returns the output sample rate
func (s *Stream) SampleRate() int { return s.outRate }

// NativeFormat returns the source's own rate and channel count
func (s *Stream) NativeFormat() (rate, channels int) {
	return s.inRate, s.inChannels
}

// ReadFrames fills dst with interleaved frames and returns the number of
// frames written. io.EOF is returned once no frames remain.
func (s *Stream) ReadFrames(dst []int32) (int, error) {
	want := len(dst) / s.outChannels
	written := 0

	for written < want {
		if s.known && s.emitted >= s.total {
			break
		}
		remaining := want - written
		if s.known {
			remaining = int(min(uint64(remaining), s.total-s.emitted))
		}

		if s.offset < len(s.pending) {
			avail := (len(s.pending) - s.offset) / s.outChannels
			n := min(avail, remaining)
			copy(dst[written*s.outChannels:], s.pending[s.offset:s.offset+n*s.outChannels])
			s.offset += n * s.outChannels
			written += n
			s.emitted += uint64(n)
			continue
		}

		if s.srcEOF {
			if !s.flushed {
				s.pending = s.resampler.Flush(s.pending[:0])
				s.offset = 0
				s.flushed = true
				continue
			}
			if !s.known {
				break
			}
			// The resampler tail came up short of the exact length.
			clear(dst[written*s.outChannels : (written+remaining)*s.outChannels])
			written += remaining
			s.emitted += uint64(remaining)
			continue
		}

		if err := s.fill(remaining); err != nil {
			return written, err
		}
	}

	if written == 0 && want > 0 {
		return 0, io.EOF
	}
	return written, nil
}

// fill reads one native chunk and converts it into pending
func (s *Stream) fill(frames int) error {
	need := s.resampler.InputSamplesNeeded(frames*s.outChannels) / s.outChannels
	need = max(1, min(need, readChunkFrames))

	n, err := s.src.Read(s.readBuf[:need*s.inChannels])
	n -= n % s.inChannels
	if n > 0 {
		s.zeroReads = 0
		s.mixBuf = mixChannels(s.mixBuf[:0], s.readBuf[:n], s.inChannels, s.outChannels)
		s.pending = s.resampler.Process(s.mixBuf, s.pending[:0])
		s.offset = 0
	}

	switch {
	case errors.Is(err, io.EOF):
		s.srcEOF = true
	case err != nil:
		return fmt.Errorf("decode failed: %w", err)
	case n == 0:
		s.zeroReads++
		if s.zeroReads >= maxZeroReads {
			return io.ErrNoProgress
		}
	}
	return nil
}

// SeekFrame repositions the stream to an output frame.
func (s *Stream) SeekFrame(frame uint64) error {
	seeker, ok := s.src.(Seeker)
	if !ok {
		return audio.ErrSeekNotSupported
	}
	if s.known && frame > s.total {
		frame = s.total
	}

	native := scaleFrames(frame, uint64(s.inRate), uint64(s.outRate))
	if l, ok := s.src.(Lengther); ok {
		if frames, known := l.Frames(); known && native > frames {
			native = frames
		}
	}
	if err := seeker.SeekFrame(native); err != nil {
		return fmt.Errorf("%w: %v", audio.ErrInvalidArgument, err)
	}

	s.resampler.Reset()
	s.pending = s.pending[:0]
	s.offset = 0
	s.srcEOF = false
	s.flushed = false
	s.zeroReads = 0
	s.emitted = frame
	return nil
}

// Close releases the underlying source
func (s *Stream) Close() error {
	return s.src.Close()
}

// mixChannels maps interleaved frames from inCh to outCh and appends them to
// dst. Downmixing averages the input channels that fold onto each output
// channel; upmixing repeats input channels in order.
func mixChannels(dst, src []int32, inCh, outCh int) []int32 {
	if inCh == outCh {
		return append(dst, src...)
	}

	frames := len(src) / inCh
	for f := 0; f < frames; f++ {
		frame := src[f*inCh : (f+1)*inCh]
		if inCh < outCh {
			for c := 0; c < outCh; c++ {
				dst = append(dst, frame[c%inCh])
			}
			continue
		}
		for c := 0; c < outCh; c++ {
			var sum int64
			count := 0
			for j := c; j < inCh; j += outCh {
				sum += int64(frame[j])
				count++
			}
			dst = append(dst, int32(sum/int64(count)))
		}
	}
	return dst
}
