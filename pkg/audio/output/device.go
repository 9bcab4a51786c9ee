// ABOUTME: Device descriptors and the registry that enumerates them
// ABOUTME: Lists are fresh snapshots, never live handles
package output

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/resonate-engine/pkg/audio"
)

// Direction tells playback devices from capture devices
type Direction int

const (
	Playback Direction = iota
	Capture
)

func (d Direction) String() string {
	if d == Capture {
		return "capture"
	}
	return "playback"
}

// DeviceDescriptor describes a hardware endpoint at enumeration time
type DeviceDescriptor struct {
	ID        string
	Name      string
	Direction Direction
	IsDefault bool
}

// DeviceList groups enumerated devices by direction
type DeviceList struct {
	Playback []DeviceDescriptor
	Capture  []DeviceDescriptor
}

// Registry enumerates devices through a backend
type Registry struct {
	backend Backend
}

// NewRegistry creates a registry over backend
func NewRegistry(backend Backend) *Registry {
	return &Registry{backend: backend}
}

// Enumerate returns the current devices. Directions without devices come
// back as empty, non-nil lists.
func (r *Registry) Enumerate() (DeviceList, error) {
	list, err := r.backend.Devices()
	if err != nil {
		if errors.Is(err, audio.ErrDeviceEnumeration) {
			return DeviceList{}, err
		}
		return DeviceList{}, fmt.Errorf("%w: %s: %v", audio.ErrDeviceEnumeration, r.backend.Name(), err)
	}

	if list.Playback == nil {
		list.Playback = []DeviceDescriptor{}
	}
	if list.Capture == nil {
		list.Capture = []DeviceDescriptor{}
	}
	for i := range list.Playback {
		list.Playback[i].Direction = Playback
	}
	for i := range list.Capture {
		list.Capture[i].Direction = Capture
	}
	return list, nil
}

// FindPlayback resolves a playback device by name. An empty name selects
// the backend default and returns a zero descriptor.
func (r *Registry) FindPlayback(name string) (DeviceDescriptor, error) {
	if name == "" {
		return DeviceDescriptor{}, nil
	}
	list, err := r.Enumerate()
	if err != nil {
		return DeviceDescriptor{}, err
	}
	for _, dev := range list.Playback {
		if dev.Name == name {
			return dev, nil
		}
	}
	return DeviceDescriptor{}, fmt.Errorf("%w: no playback device named %q", audio.ErrDeviceOpen, name)
}
