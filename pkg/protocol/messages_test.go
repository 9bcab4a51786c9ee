// ABOUTME: Tests for protocol message envelopes and error kinds
// ABOUTME: Verifies payload encoding and error mapping across the wire
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/Resonate-Protocol/resonate-engine/pkg/audio"
)

func TestNewMessage(t *testing.T) {
	msg, err := NewMessage(OpPlayAudio, "req-1", PlayAudioRequest{Path: "/music/a.wav"})
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	want := `{"type":"playAudio","id":"req-1","payload":{"path":"/music/a.wav"}}`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	var req PlayAudioRequest
	if err := decoded.Decode(&req); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if req.Path != "/music/a.wav" {
		t.Errorf("expected path /music/a.wav, got %q", req.Path)
	}
}

func TestNewMessageWithoutPayload(t *testing.T) {
	msg, err := NewMessage(OpGetVolume, "req-2", nil)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(msg)
	if string(data) != `{"type":"getVolume","id":"req-2"}` {
		t.Errorf("unexpected encoding %s", data)
	}

	// Decoding an empty payload leaves the target alone.
	v := VolumePayload{Volume: 0.7}
	if err := msg.Decode(&v); err != nil || v.Volume != 0.7 {
		t.Errorf("Decode of empty payload changed target: %+v, %v", v, err)
	}
}

func TestDecodeBadPayload(t *testing.T) {
	msg := Message{Type: OpSetVolume, Payload: json.RawMessage(`{"volume":"loud"}`)}
	var v VolumePayload
	if err := msg.Decode(&v); err == nil {
		t.Error("expected error for mistyped payload")
	}
}

func TestDevicesResultEncodesEmptyLists(t *testing.T) {
	data, err := json.Marshal(DevicesResult{Playback: []Device{{Name: "Speakers"}}, Capture: []Device{}})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"playback":[{"name":"Speakers"}],"capture":[]}`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		kind string
	}{
		{fmt.Errorf("%w: bad rate", audio.ErrConfiguration), KindConfiguration},
		{audio.ErrDeviceEnumeration, KindDeviceEnumeration},
		{fmt.Errorf("%w: busy", audio.ErrDeviceOpen), KindDeviceOpen},
		{fmt.Errorf("%w: /x.wav", audio.ErrFileNotFound), KindFileNotFound},
		{audio.ErrUnsupportedFormat, KindUnsupportedFormat},
		{audio.ErrSeekNotSupported, KindSeekNotSupported},
		{audio.ErrInvalidArgument, KindInvalidArgument},
		{audio.ErrEngineClosed, KindEngineClosed},
		{ErrBadRequest, KindBadRequest},
		{errors.New("something else"), KindInternal},
	}

	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.kind {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.kind)
		}
	}
}

func TestRemoteErrorMatchesSentinel(t *testing.T) {
	payload := NewErrorPayload(fmt.Errorf("%w: /missing.wav", audio.ErrFileNotFound))
	err := payload.Err()

	if !errors.Is(err, audio.ErrFileNotFound) {
		t.Errorf("expected remote error to match ErrFileNotFound: %v", err)
	}
	if errors.Is(err, audio.ErrUnsupportedFormat) {
		t.Error("remote error matched the wrong sentinel")
	}

	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Kind != KindFileNotFound {
		t.Errorf("expected RemoteError with kind %s, got %v", KindFileNotFound, err)
	}

	internal := ErrorPayload{Kind: KindInternal, Message: "boom"}.Err()
	if errors.Unwrap(internal) != nil {
		t.Error("internal errors should not unwrap to a sentinel")
	}
}
