// ABOUTME: Error kinds shared by the audio packages
// ABOUTME: Callers match them with errors.Is after %w wrapping
package audio

import "errors"

var (
	// ErrConfiguration means the requested format or settings are invalid.
	ErrConfiguration = errors.New("invalid audio configuration")

	// ErrDeviceEnumeration means the host audio subsystem could not be queried.
	ErrDeviceEnumeration = errors.New("device enumeration failed")

	// ErrDeviceOpen means a playback device could not be opened or started.
	ErrDeviceOpen = errors.New("device open failed")

	// ErrFileNotFound means the audio file path does not exist.
	ErrFileNotFound = errors.New("audio file not found")

	// ErrUnsupportedFormat means the file exists but cannot be decoded.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrSeekNotSupported means the source cannot be repositioned.
	ErrSeekNotSupported = errors.New("seek not supported")

	// ErrInvalidArgument means an argument is out of its allowed domain.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEngineClosed means the engine was closed before the call.
	ErrEngineClosed = errors.New("engine closed")
)
