// ABOUTME: Null audio output that renders on a timer and discards the data
// ABOUTME: Lets the engine run headless with realistic callback pacing
package output

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/resonate-engine/pkg/audio"
)

// Null is a backend without hardware
type Null struct{}

// NewNull creates a new Null backend
func NewNull() *Null {
	return &Null{}
}

func (n *Null) Name() string { return "null" }

func (n *Null) Devices() (DeviceList, error) {
	return DeviceList{
		Playback: []DeviceDescriptor{{ID: "null", Name: "Null Playback", IsDefault: true}},
		Capture:  []DeviceDescriptor{},
	}, nil
}

// OpenPlayback returns a device that calls render once per period
func (n *Null) OpenPlayback(cfg DeviceConfig, render RenderFunc, onStop func()) (Device, error) {
	if err := cfg.Format.Validate(); err != nil {
		return nil, err
	}
	period := periodFrames(cfg.Format, cfg.PeriodMs)
	return &NullDevice{
		format:   cfg.Format,
		render:   render,
		interval: time.Duration(period) * time.Second / time.Duration(cfg.Format.SampleRate),
		scratch:  make([]int32, period*cfg.Format.Channels),
	}, nil
}

func (n *Null) Close() error { return nil }

// NullDevice drives the render callback from a ticker goroutine
type NullDevice struct {
	format   audio.Format
	render   RenderFunc
	interval time.Duration
	scratch  []int32
	frames   atomic.Uint64

	mu   sync.Mutex
	quit chan struct{}
	done chan struct{}
}

func (d *NullDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.quit != nil {
		return nil
	}
	d.quit = make(chan struct{})
	d.done = make(chan struct{})
	go d.run(d.quit, d.done)
	return nil
}

func (d *NullDevice) run(quit, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			d.render(d.scratch)
			d.frames.Add(uint64(len(d.scratch) / d.format.Channels))
		}
	}
}

// Stop waits for the ticker goroutine so no render call is in flight
func (d *NullDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.quit == nil {
		return nil
	}
	close(d.quit)
	<-d.done
	d.quit, d.done = nil, nil
	return nil
}

func (d *NullDevice) Close() error {
	return d.Stop()
}

func (d *NullDevice) Format() audio.Format { return d.format }

// FramesRendered returns the number of frames pulled so far
func (d *NullDevice) FramesRendered() uint64 {
	return d.frames.Load()
}
