// ABOUTME: Malgo-based audio output implementation with 24-bit support
// ABOUTME: Uses miniaudio via malgo for playback and device enumeration
package output

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/resonate-engine/pkg/audio"
	"github.com/gen2brain/malgo"
)

// Malgo output backend using malgo/miniaudio library
type Malgo struct {
	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
}

// NewMalgo creates a new Malgo backend
func NewMalgo() *Malgo {
	return &Malgo{}
}

func (m *Malgo) Name() string { return "malgo" }

// encodeDeviceID renders a malgo device id as hex without trailing padding
func encodeDeviceID(id malgo.DeviceID) string {
	return hex.EncodeToString(bytes.TrimRight(id[:], "\x00"))
}

func decodeDeviceID(s string) (malgo.DeviceID, error) {
	var id malgo.DeviceID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(raw) > len(id) {
		return id, fmt.Errorf("device id too long")
	}
	copy(id[:], raw)
	return id, nil
}

func listMalgoDevices(typ malgo.DeviceType, malgoCtx *malgo.AllocatedContext) ([]DeviceDescriptor, error) {
	devices, err := malgoCtx.Devices(typ)
	if err != nil {
		return nil, err
	}

	res := make([]DeviceDescriptor, 0, len(devices))
	seen := make(map[string]struct{}, len(devices))
	for _, dev := range devices {
		full, err := malgoCtx.DeviceInfo(typ, dev.ID, malgo.Shared)
		if err != nil {
			log.Warnf("Unable to get audio device info: %v", err)
			continue
		}

		// Avoid duplicate device IDs.
		id := encodeDeviceID(full.ID)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		res = append(res, DeviceDescriptor{
			ID:        id,
			Name:      full.Name(),
			IsDefault: full.IsDefault == 1,
		})
	}
	return res, nil
}

// Devices lists playback and capture devices from a fresh malgo context
func (m *Malgo) Devices() (DeviceList, error) {
	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return DeviceList{}, fmt.Errorf("%w: failed to initialize malgo context: %v", audio.ErrDeviceEnumeration, err)
	}
	defer func() {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
	}()

	playback, err := listMalgoDevices(malgo.Playback, malgoCtx)
	if err != nil {
		return DeviceList{}, fmt.Errorf("%w: playback devices: %v", audio.ErrDeviceEnumeration, err)
	}
	capture, err := listMalgoDevices(malgo.Capture, malgoCtx)
	if err != nil {
		return DeviceList{}, fmt.Errorf("%w: capture devices: %v", audio.ErrDeviceEnumeration, err)
	}

	return DeviceList{Playback: playback, Capture: capture}, nil
}

// OpenPlayback initializes a playback device with the requested format
func (m *Malgo) OpenPlayback(cfg DeviceConfig, render RenderFunc, onStop func()) (Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	format := cfg.Format
	if err := format.Validate(); err != nil {
		return nil, err
	}

	// Create malgo context if needed
	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to initialize malgo context: %v", audio.ErrDeviceOpen, err)
		}
		m.malgoCtx = ctx
	}

	// Map bit depth to malgo format
	var sampleFormat malgo.FormatType
	switch format.BitDepth {
	case 16:
		sampleFormat = malgo.FormatS16
	case 24:
		sampleFormat = malgo.FormatS24
	case 32:
		sampleFormat = malgo.FormatS32
	}

	period := periodFrames(format, cfg.PeriodMs)
	r, err := newRenderer(format, period*4, render)
	if err != nil {
		return nil, err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = sampleFormat
	deviceConfig.Playback.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = uint32(max(cfg.PeriodMs, 0))
	deviceConfig.Alsa.NoMMap = 1
	if cfg.DeviceID != "" {
		id, err := decodeDeviceID(cfg.DeviceID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid device id %q: %v", audio.ErrDeviceOpen, cfg.DeviceID, err)
		}
		deviceConfig.Playback.DeviceID = id.Pointer()
	}

	d := &malgoDevice{format: format}
	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			r.fill(pOutputSample[:int(frameCount)*r.frameBytes])
		},
		Stop: func() {
			if !d.stopping.Load() && onStop != nil {
				onStop()
			}
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize playback device: %v", audio.ErrDeviceOpen, err)
	}
	d.device = device

	log.Infof("Audio output initialized: %s, period %d frames (malgo/%s)",
		format, period, formatName(sampleFormat))
	return d, nil
}

// Close releases the playback context
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Warnf("malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

type malgoDevice struct {
	device   *malgo.Device
	format   audio.Format
	stopping atomic.Bool
}

func (d *malgoDevice) Start() error {
	d.stopping.Store(false)
	if err := d.device.Start(); err != nil {
		return fmt.Errorf("%w: failed to start device: %v", audio.ErrDeviceOpen, err)
	}
	return nil
}

// Stop blocks until miniaudio has returned from the data callback
func (d *malgoDevice) Stop() error {
	d.stopping.Store(true)
	return d.device.Stop()
}

func (d *malgoDevice) Close() error {
	d.stopping.Store(true)
	if d.device.IsStarted() {
		if err := d.device.Stop(); err != nil {
			log.Warnf("device stop error: %v", err)
		}
	}
	d.device.Uninit()
	return nil
}

func (d *malgoDevice) Format() audio.Format { return d.format }

// formatName returns human-readable format name
func formatName(format malgo.FormatType) string {
	switch format {
	case malgo.FormatS16:
		return "S16"
	case malgo.FormatS24:
		return "S24"
	case malgo.FormatS32:
		return "S32"
	default:
		return fmt.Sprintf("Unknown(%d)", format)
	}
}
