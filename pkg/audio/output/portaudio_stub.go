//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-engine/pkg/audio"
)

// PortAudio output backend (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio backend
func NewPortAudio() Backend {
	return &PortAudio{}
}

func (p *PortAudio) Name() string { return "portaudio" }

func (p *PortAudio) Devices() (DeviceList, error) {
	return DeviceList{}, fmt.Errorf("%w: PortAudio support not enabled (build with -tags portaudio)", audio.ErrDeviceEnumeration)
}

func (p *PortAudio) OpenPlayback(cfg DeviceConfig, render RenderFunc, onStop func()) (Device, error) {
	return nil, fmt.Errorf("%w: PortAudio support not enabled (build with -tags portaudio)", audio.ErrDeviceOpen)
}

func (p *PortAudio) Close() error {
	return nil
}
