// ABOUTME: Audio output interface definitions
// ABOUTME: Pull-model playback backends driven by a real-time render callback
package output

import (
	"fmt"
	"sort"

	"github.com/Resonate-Protocol/resonate-engine/pkg/audio"
)

// RenderFunc fills samples with interleaved frames in the device's channel
// layout. It runs on the backend's real-time thread and must neither block
// nor allocate. Every sample must be written, silence included.
type RenderFunc func(samples []int32)

// DeviceConfig selects the format and device for a playback stream
type DeviceConfig struct {
	Format   audio.Format
	PeriodMs int
	// DeviceID is a descriptor ID from Devices; empty selects the default.
	DeviceID string
}

// Device is an opened playback device
type Device interface {
	// Start begins invoking the render callback
	Start() error
	// Stop halts the callback; no render call is in flight once it returns
	Stop() error
	// Close releases the device
	Close() error
	// Format returns the format the device was actually opened with
	Format() audio.Format
}

// Backend is a host audio API capable of enumeration and playback
type Backend interface {
	Name() string
	// Devices enumerates devices using a fresh host context each call
	Devices() (DeviceList, error)
	// OpenPlayback opens a device. onStop, when set, runs if the device
	// stops without being asked to (for example when it is unplugged).
	OpenPlayback(cfg DeviceConfig, render RenderFunc, onStop func()) (Device, error)
	// Close releases backend resources
	Close() error
}

var backends = map[string]func() Backend{
	"malgo":     func() Backend { return NewMalgo() },
	"oto":       func() Backend { return NewOto() },
	"portaudio": func() Backend { return NewPortAudio() },
	"null":      func() Backend { return NewNull() },
}

// New returns the backend registered under name
func New(name string) (Backend, error) {
	if name == "" {
		name = "malgo"
	}
	ctor, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown output backend %q (available: %v)", audio.ErrConfiguration, name, Names())
	}
	return ctor(), nil
}

// Names lists the available backend names
func Names() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// periodFrames converts a period in milliseconds to frames, at least one
func periodFrames(format audio.Format, periodMs int) int {
	if periodMs <= 0 {
		periodMs = 10
	}
	return max(1, format.SampleRate*periodMs/1000)
}
