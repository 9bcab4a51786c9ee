// ABOUTME: Lock-free single-producer single-consumer sample ring
// ABOUTME: The feeder writes whole frames and the device callback reads them
package engine

import "sync/atomic"

// ring is a circular buffer of interleaved samples. Exactly one goroutine
// may write and exactly one may read at a time. Indices grow without bound
// and are masked on access.
type ring struct {
	buf      []int32
	mask     uint64
	channels uint64
	r        atomic.Uint64 // samples consumed
	w        atomic.Uint64 // samples produced
}

// newRing creates a ring holding at least frames frames
func newRing(frames, channels int) *ring {
	need := uint64(frames * channels)
	size := uint64(1)
	for size < need {
		size <<= 1
	}
	return &ring{
		buf:      make([]int32, size),
		mask:     size - 1,
		channels: uint64(channels),
	}
}

// wholeFrames rounds a sample count down to whole frames
func (rb *ring) wholeFrames(samples uint64) uint64 {
	return samples - samples%rb.channels
}

// Write copies whole frames from samples and returns the samples written
func (rb *ring) Write(samples []int32) int {
	w := rb.w.Load()
	free := uint64(len(rb.buf)) - (w - rb.r.Load())
	n := rb.wholeFrames(min(free, uint64(len(samples))))
	if n == 0 {
		return 0
	}

	start := w & rb.mask
	first := min(n, uint64(len(rb.buf))-start)
	copy(rb.buf[start:], samples[:first])
	copy(rb.buf, samples[first:n])
	rb.w.Store(w + n)
	return int(n)
}

// Read copies whole frames into samples and returns the samples read
func (rb *ring) Read(samples []int32) int {
	r := rb.r.Load()
	avail := rb.w.Load() - r
	n := rb.wholeFrames(min(avail, uint64(len(samples))))
	if n == 0 {
		return 0
	}

	start := r & rb.mask
	first := min(n, uint64(len(rb.buf))-start)
	copy(samples, rb.buf[start:start+first])
	copy(samples[first:n], rb.buf[:n-first])
	rb.r.Store(r + n)
	return int(n)
}

// Available returns the number of samples ready to read
func (rb *ring) Available() int {
	return int(rb.w.Load() - rb.r.Load())
}

// FreeFrames returns the number of whole frames that can be written
func (rb *ring) FreeFrames() int {
	free := uint64(len(rb.buf)) - (rb.w.Load() - rb.r.Load())
	return int(free / rb.channels)
}

// WriteIndex returns the producer position. Producer side only.
func (rb *ring) WriteIndex() uint64 {
	return rb.w.Load()
}

// ReadIndex returns the consumer position. Consumer side only.
func (rb *ring) ReadIndex() uint64 {
	return rb.r.Load()
}

// SkipTo discards everything before idx. Consumer side only; idx must not
// be ahead of the producer.
func (rb *ring) SkipTo(idx uint64) {
	if idx > rb.r.Load() {
		rb.r.Store(idx)
	}
}

// Reset empties the ring. Neither side may be active.
func (rb *ring) Reset() {
	rb.r.Store(0)
	rb.w.Store(0)
}
