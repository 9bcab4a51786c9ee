// ABOUTME: Oto-based audio output implementation
// ABOUTME: Pulls 16-bit PCM from the render callback through an oto player
package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-engine/pkg/audio"
	"github.com/ebitengine/oto/v3"
)

// Oto output backend. oto allows a single context per process, so the
// first opened format sticks.
type Oto struct {
	mu     sync.Mutex
	otoCtx *oto.Context
	format audio.Format
}

// NewOto creates a new Oto backend
func NewOto() *Oto {
	return &Oto{}
}

func (o *Oto) Name() string { return "oto" }

// Devices reports the system default output; oto cannot enumerate or capture
func (o *Oto) Devices() (DeviceList, error) {
	return DeviceList{
		Playback: []DeviceDescriptor{{ID: "default", Name: "default", IsDefault: true}},
		Capture:  []DeviceDescriptor{},
	}, nil
}

// OpenPlayback creates the oto context on first use and a player over render
func (o *Oto) OpenPlayback(cfg DeviceConfig, render RenderFunc, onStop func()) (Device, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	format := cfg.Format
	if err := format.Validate(); err != nil {
		return nil, err
	}
	// oto only supports 16-bit output
	if format.BitDepth != 16 {
		log.Warnf("oto only supports 16-bit output, ignoring requested bit depth %d", format.BitDepth)
		format.BitDepth = 16
	}
	if cfg.DeviceID != "" && cfg.DeviceID != "default" {
		return nil, fmt.Errorf("%w: oto can only open the default device", audio.ErrDeviceOpen)
	}

	if o.otoCtx != nil && o.format != format {
		return nil, fmt.Errorf("%w: oto context already running at %s, cannot reopen at %s",
			audio.ErrDeviceOpen, o.format, format)
	}

	period := periodFrames(format, cfg.PeriodMs)
	if o.otoCtx == nil {
		op := &oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   time.Duration(max(cfg.PeriodMs, 1)) * time.Millisecond,
		}
		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create oto context: %v", audio.ErrDeviceOpen, err)
		}
		<-readyChan
		o.otoCtx = ctx
		o.format = format
	}

	r, err := newRenderer(format, period, render)
	if err != nil {
		return nil, err
	}
	reader := &otoReader{r: r, buf: make([]byte, period*format.BytesPerFrame())}
	player := o.otoCtx.NewPlayer(reader)
	player.SetBufferSize(period * format.BytesPerFrame() * 2)

	log.Infof("Audio output initialized: %s (oto)", format)
	return &otoDevice{player: player, format: format}, nil
}

// Close suspends the shared context; oto cannot tear it down
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.otoCtx != nil {
		return o.otoCtx.Suspend()
	}
	return nil
}

// otoReader adapts the render callback to the io.Reader oto pulls from
type otoReader struct {
	r       *renderer
	buf     []byte
	pending []byte
}

func (o *otoReader) Read(p []byte) (int, error) {
	if len(o.pending) == 0 {
		n := o.r.fill(o.buf)
		o.pending = o.buf[:n]
	}
	n := copy(p, o.pending)
	o.pending = o.pending[n:]
	return n, nil
}

type otoDevice struct {
	player *oto.Player
	format audio.Format
}

func (d *otoDevice) Start() error {
	d.player.Play()
	return nil
}

// Stop pauses the player; oto does not call Read while paused
func (d *otoDevice) Stop() error {
	d.player.Pause()
	return nil
}

func (d *otoDevice) Close() error {
	return d.player.Close()
}

func (d *otoDevice) Format() audio.Format { return d.format }
