// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides Backend/Device interfaces, the device registry and backends
// Package output provides audio playback backends.
//
// Backends pull audio: the device invokes a RenderFunc on its real-time
// thread whenever it needs another period. Supported backends are malgo
// (miniaudio, the default), oto, PortAudio (build with -tags portaudio) and
// null (timer driven, no hardware).
//
// Device enumeration goes through a Registry, which always builds a fresh
// host context and returns empty rather than nil lists.
//
// Example:
//
//	backend, _ := output.New("malgo")
//	devices, err := output.NewRegistry(backend).Enumerate()
//	dev, err := backend.OpenPlayback(output.DeviceConfig{
//	    Format:   audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 16},
//	    PeriodMs: 10,
//	}, render, nil)
//	err = dev.Start()
package output
