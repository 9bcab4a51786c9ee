// ABOUTME: Engine control protocol message type definitions
// ABOUTME: JSON envelopes, operation names and per-operation payloads
package protocol

import (
	"encoding/json"
	"fmt"
)

// Version is the protocol version exchanged in the hello messages
const Version = 1

// Envelope types
const (
	TypeClientHello = "client/hello"
	TypeServerHello = "server/hello"
	TypeResult      = "result"
	TypeError       = "error"
	TypeCompleted   = "completed"
)

// Operations a client may request. The request type is the operation name.
const (
	OpPlayAudio             = "playAudio"
	OpStop                  = "stop"
	OpGetDevices            = "getDevices"
	OpGetTimeInPcmFrames    = "getTimeInPcmFrames"
	OpGetTimeInMilliseconds = "getTimeInMilliseconds"
	OpSetTimeInPcmFrames    = "setTimeInPcmFrames"
	OpSetTimeInMilliseconds = "setTimeInMilliseconds"
	OpGetChannels           = "getChannels"
	OpGetSampleRate         = "getSampleRate"
	OpSetVolume             = "setVolume"
	OpGetVolume             = "getVolume"
)

// Operations lists every request type the server answers
var Operations = []string{
	OpPlayAudio, OpStop, OpGetDevices,
	OpGetTimeInPcmFrames, OpGetTimeInMilliseconds,
	OpSetTimeInPcmFrames, OpSetTimeInMilliseconds,
	OpGetChannels, OpGetSampleRate,
	OpSetVolume, OpGetVolume,
}

// Message is the top-level wrapper for all protocol messages. Requests
// carry an ID that the matching result or error echoes.
type Message struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage builds a message with payload encoded as JSON. A nil
// payload is omitted.
func NewMessage(typ, id string, payload interface{}) (Message, error) {
	msg := Message{Type: typ, ID: id}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode %s payload: %w", typ, err)
	}
	msg.Payload = data
	return msg, nil
}

// Decode unmarshals the payload into v. An empty payload leaves v untouched.
func (m Message) Decode(v interface{}) error {
	if len(m.Payload) == 0 || v == nil {
		return nil
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("failed to parse %s payload: %w", m.Type, err)
	}
	return nil
}

// ClientHello is sent by clients to open a session
type ClientHello struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// DeviceInfo contains software identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID   string      `json:"server_id"`
	Name       string      `json:"name"`
	Version    int         `json:"version"`
	Channels   uint32      `json:"channels"`
	SampleRate uint32      `json:"sample_rate"`
	BitDepth   int         `json:"bit_depth"`
	Backend    string      `json:"backend"`
	Operations []string    `json:"operations"`
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
}

// PlayAudioRequest asks the engine to play a file on the server host
type PlayAudioRequest struct {
	Path string `json:"path"`
}

// PlayAudioResult acknowledges a started session
type PlayAudioResult struct {
	Ack       string `json:"ack"`
	SessionID string `json:"session_id"`
}

// StopResult reports whether a session was playing
type StopResult struct {
	Stopped bool `json:"stopped"`
}

// Device describes one audio endpoint
type Device struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default,omitempty"`
}

// DevicesResult lists playback and capture devices. Both lists are always
// present, possibly empty.
type DevicesResult struct {
	Playback []Device `json:"playback"`
	Capture  []Device `json:"capture"`
}

// FramesPayload carries a position in PCM frames
type FramesPayload struct {
	Frames uint64 `json:"frames"`
}

// MillisecondsPayload carries a position in milliseconds
type MillisecondsPayload struct {
	Milliseconds uint64 `json:"milliseconds"`
}

// ChannelsResult carries the engine channel count
type ChannelsResult struct {
	Channels uint32 `json:"channels"`
}

// SampleRateResult carries the engine sample rate
type SampleRateResult struct {
	SampleRate uint32 `json:"sample_rate"`
}

// VolumePayload carries a linear volume
type VolumePayload struct {
	Volume float64 `json:"volume"`
}

// ErrorPayload is sent when an operation fails
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Completed is pushed to the connection that started a session once the
// session ends on its own. Stopped sessions produce none.
type Completed struct {
	SessionID string `json:"session_id"`
	Path      string `json:"path"`
	Status    string `json:"status"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
}
