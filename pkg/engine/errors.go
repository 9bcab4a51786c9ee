// ABOUTME: Error values returned by the engine
// ABOUTME: Re-exports the audio error taxonomy so callers need one import
package engine

import "github.com/Resonate-Protocol/resonate-engine/pkg/audio"

var (
	ErrConfiguration     = audio.ErrConfiguration
	ErrDeviceEnumeration = audio.ErrDeviceEnumeration
	ErrDeviceOpen        = audio.ErrDeviceOpen
	ErrFileNotFound      = audio.ErrFileNotFound
	ErrUnsupportedFormat = audio.ErrUnsupportedFormat
	ErrSeekNotSupported  = audio.ErrSeekNotSupported
	ErrInvalidArgument   = audio.ErrInvalidArgument
	ErrEngineClosed      = audio.ErrEngineClosed
)
