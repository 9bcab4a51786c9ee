// ABOUTME: Maps engine errors to stable protocol error kinds
// ABOUTME: Clients turn kinds back into errors that match the audio sentinels
package protocol

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/resonate-engine/pkg/audio"
)

// Error kinds carried in ErrorPayload.Kind
const (
	KindConfiguration     = "configuration"
	KindDeviceEnumeration = "device_enumeration"
	KindDeviceOpen        = "device_open"
	KindFileNotFound      = "file_not_found"
	KindUnsupportedFormat = "unsupported_format"
	KindSeekNotSupported  = "seek_not_supported"
	KindInvalidArgument   = "invalid_argument"
	KindEngineClosed      = "engine_closed"
	KindBadRequest        = "bad_request"
	KindInternal          = "internal"
)

// ErrBadRequest means the server could not understand a request
var ErrBadRequest = errors.New("bad request")

var kinds = []struct {
	kind string
	err  error
}{
	{KindConfiguration, audio.ErrConfiguration},
	{KindDeviceEnumeration, audio.ErrDeviceEnumeration},
	{KindDeviceOpen, audio.ErrDeviceOpen},
	{KindFileNotFound, audio.ErrFileNotFound},
	{KindUnsupportedFormat, audio.ErrUnsupportedFormat},
	{KindSeekNotSupported, audio.ErrSeekNotSupported},
	{KindInvalidArgument, audio.ErrInvalidArgument},
	{KindEngineClosed, audio.ErrEngineClosed},
	{KindBadRequest, ErrBadRequest},
}

// ErrorKind returns the protocol kind for err, or KindInternal
func ErrorKind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// NewErrorPayload describes err for the wire
func NewErrorPayload(err error) ErrorPayload {
	return ErrorPayload{Kind: ErrorKind(err), Message: err.Error()}
}

// RemoteError is an error reported by the server
type RemoteError struct {
	Kind    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s error: %s", e.Kind, e.Message)
}

// Unwrap returns the sentinel matching the kind so errors.Is works across
// the connection.
func (e *RemoteError) Unwrap() error {
	for _, k := range kinds {
		if k.kind == e.Kind {
			return k.err
		}
	}
	return nil
}

// Err converts the payload back into an error
func (p ErrorPayload) Err() error {
	return &RemoteError{Kind: p.Kind, Message: p.Message}
}
