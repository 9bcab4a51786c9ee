// ABOUTME: Playback transport shared by the control side and the device callback
// ABOUTME: Owns position, volume and state, plus the decode-ahead feeder
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/resonate-engine/pkg/audio"
	"github.com/decred/slog"
)

// State is the playback state of the transport
type State int32

const (
	StateIdle State = iota
	StatePlaying
	StateStopped
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateStopped:
		return "stopped"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// unknownTotal marks a track whose length is not known
const unknownTotal = ^uint64(0)

// FrameSource is a finite stream of frames already in the output format
type FrameSource interface {
	ReadFrames(dst []int32) (int, error)
	TotalFrames() (uint64, bool)
	Seekable() bool
	SeekFrame(frame uint64) error
	Close() error
}

// Track is one pass of a source through the transport
type Track struct {
	src      FrameSource
	finished chan struct{}
	stopped  chan struct{}

	mu  sync.Mutex
	err error

	cancel      context.CancelFunc
	feederDone  chan struct{}
	releaseOnce sync.Once
}

// Finished is closed when the track reaches StateCompleted
func (tr *Track) Finished() <-chan struct{} { return tr.finished }

// Stopped is closed when the track is stopped on request
func (tr *Track) Stopped() <-chan struct{} { return tr.stopped }

// Err returns the failure that ended the track early, if any
func (tr *Track) Err() error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.err
}

func (tr *Track) setErr(err error) {
	tr.mu.Lock()
	if tr.err == nil {
		tr.err = err
	}
	tr.mu.Unlock()
}

// seekCmd asks the callback to drop ring contents before ringPos and to
// continue counting from target
type seekCmd struct {
	target  uint64
	ringPos uint64
}

// Transport moves decoded frames from a source to the device callback.
// Position has one writer at a time: the callback while playing and the
// control side otherwise.
type Transport struct {
	log      slog.Logger
	channels int
	ring     *ring

	state    atomic.Int32
	position atomic.Uint64
	total    atomic.Uint64
	volume   atomic.Uint64 // float64 bits
	busy     atomic.Int32
	eof      atomic.Bool
	flush    atomic.Pointer[seekCmd]
	track    atomic.Pointer[Track]

	// space wakes the feeder after the callback drained the ring
	space chan struct{}

	// feedMu serializes source access between the feeder and control calls
	feedMu  sync.Mutex
	feedBuf []int32

	framesPlayed atomic.Uint64
	underruns    atomic.Uint64
}

// NewTransport creates a transport with room for ringFrames of decode-ahead
func NewTransport(channels, ringFrames int, log slog.Logger) *Transport {
	if log == nil {
		log = slog.Disabled
	}
	t := &Transport{
		log:      log,
		channels: channels,
		ring:     newRing(ringFrames, channels),
		space:    make(chan struct{}, 1),
		feedBuf:  make([]int32, min(ringFrames, 4096)*channels),
	}
	t.volume.Store(math.Float64bits(1))
	t.total.Store(unknownTotal)
	return t
}

// State returns the current playback state
func (t *Transport) State() State {
	return State(t.state.Load())
}

// Position returns the current position in frames. While playing, a seek
// that the callback has not applied yet reports its target.
func (t *Transport) Position() uint64 {
	if t.State() == StatePlaying {
		if cmd := t.flush.Load(); cmd != nil {
			return cmd.target
		}
	}
	return t.position.Load()
}

// Total returns the length of the current track when known
func (t *Transport) Total() (uint64, bool) {
	total := t.total.Load()
	return total, total != unknownTotal
}

// Volume returns the linear gain applied to every sample
func (t *Transport) Volume() float64 {
	return math.Float64frombits(t.volume.Load())
}

// SetVolume sets the linear gain. Values above 1 amplify and clip.
func (t *Transport) SetVolume(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: volume must be a finite value >= 0, got %v", audio.ErrInvalidArgument, v)
	}
	t.volume.Store(math.Float64bits(v))
	return nil
}

// FramesPlayed returns the number of source frames delivered to the device
func (t *Transport) FramesPlayed() uint64 { return t.framesPlayed.Load() }

// Underruns returns how many callbacks found the ring short mid-track
func (t *Transport) Underruns() uint64 { return t.underruns.Load() }

// quiesce waits until no callback is inside PullFrames
func (t *Transport) quiesce() {
	for t.busy.Load() != 0 {
		runtime.Gosched()
	}
}

func (t *Transport) wake() {
	select {
	case t.space <- struct{}{}:
	default:
	}
}

// Start begins playing src from frame zero. The previous track must no
// longer be playing. The ring is filled before the state flips so the first
// callback has audio.
func (t *Transport) Start(src FrameSource) (*Track, error) {
	if t.State() == StatePlaying {
		return nil, fmt.Errorf("transport already playing")
	}
	if prev := t.track.Load(); prev != nil {
		t.Release(prev)
	}
	t.quiesce()

	tr := &Track{
		src:        src,
		finished:   make(chan struct{}),
		stopped:    make(chan struct{}),
		feederDone: make(chan struct{}),
	}
	prevPos, prevTotal := t.position.Load(), t.total.Load()
	t.ring.Reset()
	t.flush.Store(nil)
	t.eof.Store(false)
	t.position.Store(0)
	if total, known := src.TotalFrames(); known {
		t.total.Store(total)
	} else {
		t.total.Store(unknownTotal)
	}
	t.track.Store(tr)

	t.feedMu.Lock()
	err := t.fill(tr)
	t.feedMu.Unlock()
	if err != nil {
		t.track.Store(nil)
		t.ring.Reset()
		t.position.Store(prevPos)
		t.total.Store(prevTotal)
		close(tr.feederDone)
		return nil, fmt.Errorf("%w: %v", audio.ErrUnsupportedFormat, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	tr.cancel = cancel
	t.state.Store(int32(StatePlaying))
	go t.feed(ctx, tr)
	return tr, nil
}

// fill tops up the ring from the track's source. Must hold feedMu.
func (t *Transport) fill(tr *Track) error {
	for !t.eof.Load() {
		free := t.ring.FreeFrames()
		if free == 0 {
			return nil
		}
		want := min(free, len(t.feedBuf)/t.channels)
		n, err := tr.src.ReadFrames(t.feedBuf[:want*t.channels])
		if n > 0 {
			t.ring.Write(t.feedBuf[:n*t.channels])
		}
		if errors.Is(err, io.EOF) {
			t.eof.Store(true)
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// feed keeps the ring topped up until the track is released. After the
// source ends it idles so a seek can resume it.
func (t *Transport) feed(ctx context.Context, tr *Track) {
	defer close(tr.feederDone)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.space:
		}

		t.feedMu.Lock()
		err := t.fill(tr)
		t.feedMu.Unlock()
		if err != nil {
			t.log.Errorf("Decoding failed: %v", err)
			tr.setErr(err)
			// The callback completes the track once the ring drains.
			t.eof.Store(true)
		}
	}
}

// PullFrames fills buf with frameCount frames for the device. It runs on
// the real-time thread: it never blocks, allocates or performs I/O.
// Returns the number of source frames delivered; the rest is silence.
func (t *Transport) PullFrames(buf []int32, frameCount int) int {
	t.busy.Add(1)
	defer t.busy.Add(-1)

	samples := buf[:frameCount*t.channels]
	if t.State() != StatePlaying {
		clear(samples)
		return 0
	}

	if cmd := t.flush.Swap(nil); cmd != nil {
		t.applySeek(cmd)
	}

	read := t.ring.Read(samples)
	audio.ApplyGain(samples[:read], t.Volume())
	clear(samples[read:])

	frames := read / t.channels
	if frames > 0 {
		t.position.Add(uint64(frames))
		t.framesPlayed.Add(uint64(frames))
	}
	if frames < frameCount {
		if t.eof.Load() && t.ring.Available() == 0 && t.flush.Load() == nil {
			t.complete()
		} else {
			t.underruns.Add(1)
		}
	}

	t.wake()
	return frames
}

// applySeek drops pre-seek frames still in the ring. A callback that
// loaded flush before the seek was published may already have consumed
// frames past ringPos; those count from the target.
func (t *Transport) applySeek(cmd *seekCmd) {
	if r := t.ring.ReadIndex(); r > cmd.ringPos {
		t.position.Store(cmd.target + (r-cmd.ringPos)/uint64(t.channels))
		return
	}
	t.ring.SkipTo(cmd.ringPos)
	t.position.Store(cmd.target)
}

// complete moves a playing track to StateCompleted exactly once. A seek
// that raced the end of the track is dropped.
func (t *Transport) complete() bool {
	if !t.state.CompareAndSwap(int32(StatePlaying), int32(StateCompleted)) {
		return false
	}
	t.flush.Store(nil)
	if t.total.Load() == unknownTotal {
		t.total.Store(t.position.Load())
	}
	if tr := t.track.Load(); tr != nil {
		close(tr.finished)
	}
	return true
}

// Stop halts a playing track. Once it returns no callback touches the
// track and its position is frozen. Returns false if nothing was playing.
func (t *Transport) Stop() bool {
	if !t.state.CompareAndSwap(int32(StatePlaying), int32(StateStopped)) {
		return false
	}
	t.quiesce()

	tr := t.track.Load()
	// Release waits out any Seek holding feedMu.
	t.Release(tr)
	if cmd := t.flush.Swap(nil); cmd != nil {
		t.applySeek(cmd)
	}
	close(tr.stopped)
	return true
}

// Abort completes a playing track with err, for failures outside the
// callback such as losing the device.
func (t *Transport) Abort(err error) bool {
	tr := t.track.Load()
	if tr == nil || t.State() != StatePlaying {
		return false
	}
	tr.setErr(err)
	if !t.complete() {
		return false
	}
	t.quiesce()
	return true
}

// Release stops the track's feeder and closes its source. Safe to call
// more than once and from several goroutines.
func (t *Transport) Release(tr *Track) {
	tr.releaseOnce.Do(func() {
		if tr.cancel != nil {
			tr.cancel()
			<-tr.feederDone
		}
		t.feedMu.Lock()
		defer t.feedMu.Unlock()
		if err := tr.src.Close(); err != nil {
			t.log.Warnf("Closing source: %v", err)
		}
	})
}

// Seek moves to frame, clamped to the track length when known. While
// playing only seekable sources can move; otherwise the idle cursor moves.
func (t *Transport) Seek(frame uint64) error {
	if total := t.total.Load(); total != unknownTotal && frame > total {
		frame = total
	}

	t.feedMu.Lock()
	defer t.feedMu.Unlock()

	if t.State() != StatePlaying {
		t.position.Store(frame)
		return nil
	}

	tr := t.track.Load()
	if !tr.src.Seekable() {
		return audio.ErrSeekNotSupported
	}
	if err := tr.src.SeekFrame(frame); err != nil {
		return err
	}

	// eof first: a callback that applies the seek must not see the old end.
	t.eof.Store(false)
	t.flush.Store(&seekCmd{target: frame, ringPos: t.ring.WriteIndex()})
	t.wake()
	return nil
}
