// ABOUTME: Tests for the protocol client against an in-process server
// ABOUTME: Exercises handshake, request routing, errors and notices
package protocol

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Resonate-Protocol/resonate-engine/pkg/audio"
	"github.com/gorilla/websocket"
)

// scriptedServer answers requests with handler and can push notices
type scriptedServer struct {
	t       *testing.T
	handler func(msg Message) Message
	push    chan Completed
	kill    chan struct{}
}

func (s *scriptedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.t.Errorf("upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var hello Message
	if err := conn.ReadJSON(&hello); err != nil || hello.Type != TypeClientHello {
		s.t.Errorf("expected client/hello, got %+v (%v)", hello, err)
		return
	}
	reply, _ := NewMessage(TypeServerHello, "", ServerHello{
		Name: "test", Version: Version, Channels: 2, SampleRate: 48000, Backend: "null",
	})
	conn.WriteJSON(reply)

	msgs := make(chan Message)
	go func() {
		defer close(msgs)
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			msgs <- msg
		}
	}()

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			conn.WriteJSON(s.handler(msg))
		case n := <-s.push:
			out, _ := NewMessage(TypeCompleted, "", n)
			conn.WriteJSON(out)
		case <-s.kill:
			return
		}
	}
}

func dialTest(t *testing.T, handler func(Message) Message) (*Client, *scriptedServer) {
	t.Helper()
	srv := &scriptedServer{t: t, handler: handler, push: make(chan Completed, 1)}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/control"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, Config{URL: url, Name: "test-client"})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, srv
}

func TestClientHandshake(t *testing.T) {
	c, _ := dialTest(t, nil)
	hello := c.Hello()
	if hello.SampleRate != 48000 || hello.Channels != 2 || hello.Backend != "null" {
		t.Errorf("unexpected server hello %+v", hello)
	}
}

func TestClientCalls(t *testing.T) {
	c, _ := dialTest(t, func(msg Message) Message {
		var out Message
		switch msg.Type {
		case OpGetVolume:
			out, _ = NewMessage(TypeResult, msg.ID, VolumePayload{Volume: 0.25})
		case OpSetTimeInPcmFrames:
			var req FramesPayload
			msg.Decode(&req)
			if req.Frames != 220500 {
				out, _ = NewMessage(TypeError, msg.ID, ErrorPayload{Kind: KindInvalidArgument, Message: "wrong frames"})
				break
			}
			out, _ = NewMessage(TypeResult, msg.ID, nil)
		case OpGetDevices:
			out, _ = NewMessage(TypeResult, msg.ID, DevicesResult{
				Playback: []Device{{Name: "Speakers", IsDefault: true}},
				Capture:  []Device{},
			})
		default:
			out, _ = NewMessage(TypeError, msg.ID, ErrorPayload{Kind: KindBadRequest, Message: "unknown " + msg.Type})
		}
		return out
	})
	ctx := context.Background()

	v, err := c.GetVolume(ctx)
	if err != nil || v != 0.25 {
		t.Errorf("GetVolume = %v, %v", v, err)
	}
	if err := c.SetTimeInPcmFrames(ctx, 220500); err != nil {
		t.Errorf("SetTimeInPcmFrames failed: %v", err)
	}
	if err := c.SetTimeInPcmFrames(ctx, 1); !errors.Is(err, audio.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}

	devs, err := c.GetDevices(ctx)
	if err != nil {
		t.Fatalf("GetDevices failed: %v", err)
	}
	if len(devs.Playback) != 1 || devs.Capture == nil || len(devs.Capture) != 0 {
		t.Errorf("unexpected devices %+v", devs)
	}

	if _, err := c.GetChannels(ctx); !errors.Is(err, ErrBadRequest) {
		t.Errorf("expected ErrBadRequest, got %v", err)
	}
}

func TestClientCompletedNotice(t *testing.T) {
	c, srv := dialTest(t, nil)

	srv.push <- Completed{SessionID: "s1", Path: "/a.wav", Status: "Audio finished playing!"}
	select {
	case n := <-c.Completed:
		if n.SessionID != "s1" || n.Status != "Audio finished playing!" {
			t.Errorf("unexpected notice %+v", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no notice received")
	}
}

func TestClientCallContextCanceled(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	c, _ := dialTest(t, func(msg Message) Message {
		<-block
		out, _ := NewMessage(TypeResult, msg.ID, nil)
		return out
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.GetVolume(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestClientConnectionLoss(t *testing.T) {
	srv := &scriptedServer{t: t, push: make(chan Completed), kill: make(chan struct{})}
	ts := httptest.NewServer(srv)
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	c, err := Dial(context.Background(), Config{URL: url})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	close(srv.kill)

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("client did not notice the closed connection")
	}
	if _, err := c.GetVolume(context.Background()); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("expected ErrConnectionClosed, got %v", err)
	}
	if _, ok := <-c.Completed; ok {
		t.Error("Completed should be closed")
	}
}
