// ABOUTME: Engine facade that plays one audio file at a time
// ABOUTME: Combines device registry, decoder, transport and time conversions
package engine

import (
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/resonate-engine/pkg/audio"
	"github.com/Resonate-Protocol/resonate-engine/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-engine/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-engine/pkg/audio/timebase"
	"github.com/decred/slog"
)

// Config holds engine parameters. Channels and SampleRate are fixed for
// the life of the engine.
type Config struct {
	Channels   uint32
	SampleRate uint32

	// BitDepth is the device sample format: 16, 24 or 32
	BitDepth int
	// PeriodMs is the requested hardware period
	PeriodMs int
	// BufferMs is how much audio is decoded ahead of the device
	BufferMs int
	// DeviceName selects a playback device; empty uses the default
	DeviceName string

	Backend output.Backend
	Log     slog.Logger
}

// DefaultConfig returns stereo 48kHz 16-bit on the default malgo device
func DefaultConfig() Config {
	return Config{
		Channels:   2,
		SampleRate: 48000,
		BitDepth:   16,
		PeriodMs:   10,
		BufferMs:   500,
	}
}

func (c *Config) applyDefaults() error {
	def := DefaultConfig()
	if c.BitDepth == 0 {
		c.BitDepth = def.BitDepth
	}
	if c.PeriodMs <= 0 {
		c.PeriodMs = def.PeriodMs
	}
	if c.BufferMs <= 0 {
		c.BufferMs = def.BufferMs
	}
	if c.Log == nil {
		c.Log = slog.Disabled
	}
	if c.Backend == nil {
		b, err := output.New("")
		if err != nil {
			return err
		}
		c.Backend = b
	}
	return nil
}

func (c *Config) format() audio.Format {
	return audio.Format{
		SampleRate: int(c.SampleRate),
		Channels:   int(c.Channels),
		BitDepth:   c.BitDepth,
	}
}

// Engine plays audio files on an output device
type Engine struct {
	cfg       Config
	format    audio.Format
	log       slog.Logger
	registry  *output.Registry
	transport *Transport
	counters  counters

	// mu serializes control operations that change the session or device
	mu      sync.Mutex
	device  output.Device
	session *session
	closed  bool
}

// New validates cfg and creates an engine. No device is opened until the
// first PlayAudio.
func New(cfg Config) (*Engine, error) {
	if cfg.Channels == 0 || cfg.SampleRate == 0 {
		return nil, fmt.Errorf("%w: channels and sample rate must be set", ErrConfiguration)
	}
	format := cfg.format()
	if format.BitDepth == 0 {
		format.BitDepth = DefaultConfig().BitDepth
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	ringFrames := int(cfg.SampleRate) * cfg.BufferMs / 1000
	e := &Engine{
		cfg:       cfg,
		format:    cfg.format(),
		log:       cfg.Log,
		registry:  output.NewRegistry(cfg.Backend),
		transport: NewTransport(int(cfg.Channels), max(ringFrames, 1), cfg.Log),
	}
	e.log.Infof("Engine created: %s via %s", e.format, cfg.Backend.Name())
	return e, nil
}

func (e *Engine) render(samples []int32) {
	e.transport.PullFrames(samples, len(samples)/e.format.Channels)
}

// ensureDevice opens and starts the output device. Must hold mu.
func (e *Engine) ensureDevice() error {
	if e.device != nil {
		return nil
	}

	desc, err := e.registry.FindPlayback(e.cfg.DeviceName)
	if err != nil {
		return err
	}

	var dev output.Device
	dev, err = e.cfg.Backend.OpenPlayback(output.DeviceConfig{
		Format:   e.format,
		PeriodMs: e.cfg.PeriodMs,
		DeviceID: desc.ID,
	}, e.render, func() {
		go e.handleDeviceLoss(dev)
	})
	if err != nil {
		return err
	}

	got := dev.Format()
	if got.SampleRate != e.format.SampleRate || got.Channels != e.format.Channels {
		dev.Close()
		return fmt.Errorf("%w: device opened as %s, engine needs %dHz/%dch",
			ErrDeviceOpen, got, e.format.SampleRate, e.format.Channels)
	}
	if err := dev.Start(); err != nil {
		dev.Close()
		return fmt.Errorf("%w: start: %v", ErrDeviceOpen, err)
	}

	name := desc.Name
	if name == "" {
		name = "default device"
	}
	e.log.Infof("Opened %s on %s (%s)", name, e.cfg.Backend.Name(), got)
	e.device = dev
	return nil
}

// handleDeviceLoss fails the current session when dev stops on its own
func (e *Engine) handleDeviceLoss(dev output.Device) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.device != dev {
		return
	}

	e.log.Warnf("Playback device stopped unexpectedly")
	e.transport.Abort(fmt.Errorf("%w: device stopped unexpectedly", ErrDeviceOpen))
	if err := dev.Close(); err != nil {
		e.log.Debugf("Closing lost device: %v", err)
	}
	e.device = nil
}

// PlayAudio starts playing the file at path and returns an acknowledgement
// once audio is flowing. A session already playing is stopped first. onDone,
// if set, receives exactly one notice when the new session completes on its
// own; it runs on its own goroutine and is not called after a stop.
//
// Open and device errors leave a playing session untouched. If decoding
// fails while priming the buffer, the previous session has already been
// stopped; its position and length are kept.
func (e *Engine) PlayAudio(path string, onDone func(CompletionNotice)) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return "", ErrEngineClosed
	}

	stream, err := decode.Open(path, e.format.Channels, e.format.SampleRate)
	if err != nil {
		return "", err
	}
	if err := e.ensureDevice(); err != nil {
		stream.Close()
		return "", err
	}

	e.stopLocked()

	s := newSession(path, onDone)
	tr, err := e.transport.Start(stream)
	if err != nil {
		stream.Close()
		return "", err
	}
	s.track = tr
	e.session = s
	e.counters.started.Add(1)
	go e.watch(s)

	e.log.Infof("Session %s playing %s", s.id, path)
	return "Playing: " + path, nil
}

// stopLocked stops the playing session, if any. Must hold mu.
func (e *Engine) stopLocked() bool {
	if !e.transport.Stop() {
		return false
	}
	if e.session != nil {
		e.log.Infof("Session %s stopped at frame %d", e.session.id, e.transport.Position())
	}
	return true
}

// Stop halts the playing session without a completion notice. No frames
// are pulled once it returns. Returns false when nothing was playing.
func (e *Engine) Stop() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false, ErrEngineClosed
	}
	return e.stopLocked(), nil
}

// Close stops playback and releases the device and backend
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.stopLocked()

	var firstErr error
	if e.device != nil {
		if err := e.device.Stop(); err != nil {
			firstErr = err
		}
		if err := e.device.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		e.device = nil
	}
	if e.session != nil {
		e.transport.Release(e.session.track)
	}
	if err := e.cfg.Backend.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	e.log.Infof("Engine closed")
	return firstErr
}

// GetDevices enumerates playback and capture devices
func (e *Engine) GetDevices() (output.DeviceList, error) {
	if e.isClosed() {
		return output.DeviceList{}, ErrEngineClosed
	}
	return e.registry.Enumerate()
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// GetTimeInPcmFrames returns the playback position in frames
func (e *Engine) GetTimeInPcmFrames() uint64 {
	return e.transport.Position()
}

// GetTimeInMilliseconds returns the playback position in whole milliseconds
func (e *Engine) GetTimeInMilliseconds() (uint64, error) {
	return timebase.FramesToWholeMillis(e.transport.Position(), e.cfg.SampleRate)
}

// SetTimeInPcmFrames seeks to frame. While playing, the source must be
// seekable. Without a playing session the idle cursor moves instead.
func (e *Engine) SetTimeInPcmFrames(frame uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	return e.transport.Seek(frame)
}

// SetTimeInMilliseconds seeks to ms, rounded to the nearest frame
func (e *Engine) SetTimeInMilliseconds(ms uint64) error {
	frame, err := timebase.MillisToFrames(float64(ms), e.cfg.SampleRate)
	if err != nil {
		return err
	}
	return e.SetTimeInPcmFrames(frame)
}

// GetChannels returns the configured channel count
func (e *Engine) GetChannels() uint32 { return e.cfg.Channels }

// GetSampleRate returns the configured sample rate
func (e *Engine) GetSampleRate() uint32 { return e.cfg.SampleRate }

// SetVolume sets the linear gain, effective from the next device period
func (e *Engine) SetVolume(v float64) error {
	return e.transport.SetVolume(v)
}

// GetVolume returns the linear gain
func (e *Engine) GetVolume() float64 {
	return e.transport.Volume()
}

// State returns the transport state
func (e *Engine) State() State {
	return e.transport.State()
}

// Format returns the engine's output format
func (e *Engine) Format() audio.Format {
	return e.format
}

// BackendName returns the name of the output backend in use
func (e *Engine) BackendName() string {
	return e.cfg.Backend.Name()
}

// Session returns a snapshot of the latest session. The bool is false
// before the first PlayAudio.
func (e *Engine) Session() (SessionInfo, bool) {
	e.mu.Lock()
	s := e.session
	e.mu.Unlock()
	if s == nil {
		return SessionInfo{}, false
	}
	total, known := e.transport.Total()
	return SessionInfo{
		ID:          s.id,
		Path:        s.path,
		State:       e.transport.State(),
		Started:     s.started,
		Position:    e.transport.Position(),
		TotalFrames: total,
		TotalKnown:  known,
		Volume:      e.transport.Volume(),
	}, true
}
