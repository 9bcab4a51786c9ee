//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform playback and device enumeration using PortAudio
package output

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-engine/pkg/audio"
	"github.com/gordonklaus/portaudio"
)

// PortAudio output backend. PortAudio exposes no stable device id, so
// descriptors use the device name.
type PortAudio struct{}

// NewPortAudio creates a new PortAudio backend
func NewPortAudio() Backend {
	return &PortAudio{}
}

func (p *PortAudio) Name() string { return "portaudio" }

// Devices initializes PortAudio for the duration of the listing
func (p *PortAudio) Devices() (DeviceList, error) {
	if err := portaudio.Initialize(); err != nil {
		return DeviceList{}, fmt.Errorf("%w: failed to initialize portaudio: %v", audio.ErrDeviceEnumeration, err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return DeviceList{}, fmt.Errorf("%w: %v", audio.ErrDeviceEnumeration, err)
	}
	defOut, _ := portaudio.DefaultOutputDevice()
	defIn, _ := portaudio.DefaultInputDevice()

	list := DeviceList{Playback: []DeviceDescriptor{}, Capture: []DeviceDescriptor{}}
	for _, dev := range devices {
		if dev.MaxOutputChannels > 0 {
			list.Playback = append(list.Playback, DeviceDescriptor{
				ID:        dev.Name,
				Name:      dev.Name,
				IsDefault: defOut != nil && dev.Name == defOut.Name,
			})
		}
		if dev.MaxInputChannels > 0 {
			list.Capture = append(list.Capture, DeviceDescriptor{
				ID:        dev.Name,
				Name:      dev.Name,
				IsDefault: defIn != nil && dev.Name == defIn.Name,
			})
		}
	}
	return list, nil
}

func findPortAudioDevice(id string) (*portaudio.DeviceInfo, error) {
	if id == "" {
		return portaudio.DefaultOutputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, dev := range devices {
		if dev.Name == id && dev.MaxOutputChannels > 0 {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("no output device named %q", id)
}

// OpenPlayback opens a stream on the selected device. 16-bit streams use
// int16 buffers; deeper formats use int32 with the sample in the top bits.
func (p *PortAudio) OpenPlayback(cfg DeviceConfig, render RenderFunc, onStop func()) (Device, error) {
	format := cfg.Format
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if format.BitDepth == 24 {
		format.BitDepth = 32
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: failed to initialize portaudio: %v", audio.ErrDeviceOpen, err)
	}

	dev, err := findPortAudioDevice(cfg.DeviceID)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: %v", audio.ErrDeviceOpen, err)
	}

	period := periodFrames(format, cfg.PeriodMs)
	params := portaudio.LowLatencyParameters(nil, dev)
	params.Output.Channels = format.Channels
	params.SampleRate = float64(format.SampleRate)
	params.FramesPerBuffer = period

	scratch := make([]int32, period*format.Channels)
	var callback interface{}
	if format.BitDepth == 16 {
		callback = func(out []int16) {
			for off := 0; off < len(out); off += len(scratch) {
				buf := scratch[:min(len(scratch), len(out)-off)]
				render(buf)
				for i, s := range buf {
					out[off+i] = audio.SampleToInt16(s)
				}
			}
		}
	} else {
		callback = func(out []int32) {
			for off := 0; off < len(out); off += len(scratch) {
				buf := scratch[:min(len(scratch), len(out)-off)]
				render(buf)
				for i, s := range buf {
					out[off+i] = s << 8
				}
			}
		}
	}

	stream, err := portaudio.OpenStream(params, callback)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: failed to open stream: %v", audio.ErrDeviceOpen, err)
	}

	log.Infof("Audio output initialized: %s on %q (portaudio)", format, dev.Name)
	return &portAudioDevice{stream: stream, format: format}, nil
}

func (p *PortAudio) Close() error {
	return nil
}

type portAudioDevice struct {
	stream *portaudio.Stream
	format audio.Format
}

func (d *portAudioDevice) Start() error {
	if err := d.stream.Start(); err != nil {
		return fmt.Errorf("%w: failed to start stream: %v", audio.ErrDeviceOpen, err)
	}
	return nil
}

func (d *portAudioDevice) Stop() error {
	return d.stream.Stop()
}

// Close releases the stream and the PortAudio reference taken at open
func (d *portAudioDevice) Close() error {
	if err := d.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}

func (d *portAudioDevice) Format() audio.Format { return d.format }
