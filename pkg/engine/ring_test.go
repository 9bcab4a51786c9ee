// ABOUTME: Tests for the sample ring
// ABOUTME: Covers wraparound, whole-frame accounting and concurrent use
package engine

import (
	"sync"
	"testing"
)

func TestRingCapacityRoundsUp(t *testing.T) {
	rb := newRing(100, 2)
	if len(rb.buf) != 256 {
		t.Errorf("expected 256 sample slots, got %d", len(rb.buf))
	}
	if rb.FreeFrames() != 128 {
		t.Errorf("expected 128 free frames, got %d", rb.FreeFrames())
	}
}

func TestRingWriteRead(t *testing.T) {
	rb := newRing(4, 2) // 8 slots

	if n := rb.Write([]int32{1, 2, 3, 4, 5, 6}); n != 6 {
		t.Fatalf("expected 6 samples written, got %d", n)
	}
	out := make([]int32, 4)
	if n := rb.Read(out); n != 4 {
		t.Fatalf("expected 4 samples read, got %d", n)
	}
	if out[0] != 1 || out[3] != 4 {
		t.Errorf("unexpected read %v", out)
	}

	// Wraps around the end of the buffer
	if n := rb.Write([]int32{7, 8, 9, 10, 11, 12}); n != 6 {
		t.Fatalf("expected 6 samples written across wrap, got %d", n)
	}
	out = make([]int32, 8)
	if n := rb.Read(out); n != 8 {
		t.Fatalf("expected 8 samples read, got %d", n)
	}
	for i, want := range []int32{5, 6, 7, 8, 9, 10, 11, 12} {
		if out[i] != want {
			t.Fatalf("sample %d: expected %d, got %d", i, want, out[i])
		}
	}
}

func TestRingWholeFrames(t *testing.T) {
	rb := newRing(4, 2)

	// An odd trailing sample is not a whole frame
	if n := rb.Write([]int32{1, 2, 3}); n != 2 {
		t.Errorf("expected 2 samples written, got %d", n)
	}
	out := make([]int32, 3)
	if n := rb.Read(out); n != 2 {
		t.Errorf("expected 2 samples read, got %d", n)
	}

	// Full ring refuses further writes
	rb.Write(make([]int32, 8))
	if n := rb.Write([]int32{1, 2}); n != 0 {
		t.Errorf("expected full ring to accept 0 samples, got %d", n)
	}
}

func TestRingSkipTo(t *testing.T) {
	rb := newRing(8, 1)
	rb.Write([]int32{1, 2, 3})
	mark := rb.WriteIndex()
	rb.Write([]int32{4, 5})

	rb.SkipTo(mark)
	out := make([]int32, 8)
	n := rb.Read(out)
	if n != 2 || out[0] != 4 || out[1] != 5 {
		t.Errorf("expected [4 5] after skip, got %v", out[:n])
	}

	rb.Reset()
	if rb.Available() != 0 || rb.FreeFrames() != 8 {
		t.Errorf("expected empty ring after reset")
	}
}

func TestRingConcurrent(t *testing.T) {
	rb := newRing(64, 2)
	const total = 100000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		next := int32(0)
		buf := make([]int32, 34)
		for next < total {
			for i := range buf {
				buf[i] = next + int32(i)
			}
			n := rb.Write(buf[:min(len(buf), int(total-next))])
			next += int32(n)
		}
	}()

	expected := int32(0)
	out := make([]int32, 50)
	for expected < total {
		n := rb.Read(out)
		for i := 0; i < n; i++ {
			if out[i] != expected {
				t.Fatalf("expected %d, got %d", expected, out[i])
			}
			expected++
		}
	}
	wg.Wait()
}
