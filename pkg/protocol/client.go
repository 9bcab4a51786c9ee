// ABOUTME: WebSocket client for the engine control protocol
// ABOUTME: Handles connection, handshake, request routing and notices
package protocol

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrConnectionClosed is returned for requests that cannot complete
// because the connection went away
var ErrConnectionClosed = errors.New("connection closed")

// Config holds client configuration
type Config struct {
	// URL is the server WebSocket URL, for example ws://host:8937/control
	URL              string
	ClientID         string
	Name             string
	HandshakeTimeout time.Duration
}

// Client represents a control connection to an engine server
type Client struct {
	config Config
	conn   *websocket.Conn
	hello  ServerHello

	// Completed receives session notices; closed when the connection ends
	Completed chan Completed

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan Message
	err     error

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Dial connects to the server and performs the handshake
func Dial(ctx context.Context, config Config) (*Client, error) {
	if config.ClientID == "" {
		config.ClientID = uuid.NewString()
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = 5 * time.Second
	}

	log.Debugf("Connecting to %s", config.URL)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	cctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		config:    config,
		conn:      conn,
		Completed: make(chan Completed, 16),
		pending:   make(map[string]chan Message),
		ctx:       cctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	if err := c.handshake(); err != nil {
		cancel()
		conn.Close()
		return nil, fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()
	return c, nil
}

// handshake sends client/hello and waits for server/hello
func (c *Client) handshake() error {
	msg, err := NewMessage(TypeClientHello, "", ClientHello{
		ClientID: c.config.ClientID,
		Name:     c.config.Name,
		Version:  Version,
	})
	if err != nil {
		return err
	}
	if err := c.send(msg); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(c.config.HandshakeTimeout))
	var reply Message
	if err := c.conn.ReadJSON(&reply); err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{}) // Clear deadline

	switch reply.Type {
	case TypeServerHello:
	case TypeError:
		var p ErrorPayload
		if err := reply.Decode(&p); err != nil {
			return err
		}
		return p.Err()
	default:
		return fmt.Errorf("expected %s, got %s", TypeServerHello, reply.Type)
	}
	if err := reply.Decode(&c.hello); err != nil {
		return err
	}
	if c.hello.Version != Version {
		return fmt.Errorf("unsupported protocol version %d", c.hello.Version)
	}

	log.Infof("Connected to %s (%dHz/%dch via %s)", c.hello.Name, c.hello.SampleRate, c.hello.Channels, c.hello.Backend)
	return nil
}

// Hello returns the server's handshake reply
func (c *Client) Hello() ServerHello {
	return c.hello
}

// send writes one message; gorilla connections allow a single writer
func (c *Client) send(msg Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

// readMessages routes results to waiting calls and pushes notices
func (c *Client) readMessages() {
	var readErr error
	defer func() {
		c.shutdown(readErr)
		close(c.Completed)
	}()

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.ctx.Done():
			default:
				log.Warnf("Read error: %v", err)
			}
			readErr = err
			return
		}

		switch msg.Type {
		case TypeResult, TypeError:
			c.mu.Lock()
			ch, ok := c.pending[msg.ID]
			delete(c.pending, msg.ID)
			c.mu.Unlock()
			if !ok {
				log.Warnf("Reply for unknown request %q", msg.ID)
				continue
			}
			ch <- msg

		case TypeCompleted:
			var n Completed
			if err := msg.Decode(&n); err != nil {
				log.Warnf("%v", err)
				continue
			}
			select {
			case c.Completed <- n:
			case <-c.ctx.Done():
				return
			}

		default:
			log.Debugf("Unknown message type: %s", msg.Type)
		}
	}
}

// shutdown records the terminal error and fails outstanding calls
func (c *Client) shutdown(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = ErrConnectionClosed
		if err != nil {
			c.err = fmt.Errorf("%w: %v", ErrConnectionClosed, err)
		}
	}
	c.pending = make(map[string]chan Message)
	c.mu.Unlock()
	c.cancel()
	close(c.done)
}

// Done is closed once the connection has ended
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Call sends op with req as payload and decodes the result into resp.
// Either may be nil.
func (c *Client) Call(ctx context.Context, op string, req, resp interface{}) error {
	id := uuid.NewString()
	msg, err := NewMessage(op, id, req)
	if err != nil {
		return err
	}

	ch := make(chan Message, 1)
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return err
	}
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.send(msg); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return fmt.Errorf("failed to send %s: %w", op, err)
	}

	select {
	case reply := <-ch:
		if reply.Type == TypeError {
			var p ErrorPayload
			if err := reply.Decode(&p); err != nil {
				return err
			}
			return p.Err()
		}
		return reply.Decode(resp)
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return ctx.Err()
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.err
	}
}

// PlayAudio starts playing a file on the server. The matching notice
// arrives on Completed.
func (c *Client) PlayAudio(ctx context.Context, path string) (PlayAudioResult, error) {
	var res PlayAudioResult
	err := c.Call(ctx, OpPlayAudio, PlayAudioRequest{Path: path}, &res)
	return res, err
}

// Stop halts playback and reports whether anything was playing
func (c *Client) Stop(ctx context.Context) (bool, error) {
	var res StopResult
	err := c.Call(ctx, OpStop, nil, &res)
	return res.Stopped, err
}

// GetDevices lists the server's audio devices
func (c *Client) GetDevices(ctx context.Context) (DevicesResult, error) {
	var res DevicesResult
	err := c.Call(ctx, OpGetDevices, nil, &res)
	return res, err
}

// GetTimeInPcmFrames returns the position in frames
func (c *Client) GetTimeInPcmFrames(ctx context.Context) (uint64, error) {
	var res FramesPayload
	err := c.Call(ctx, OpGetTimeInPcmFrames, nil, &res)
	return res.Frames, err
}

// GetTimeInMilliseconds returns the position in milliseconds
func (c *Client) GetTimeInMilliseconds(ctx context.Context) (uint64, error) {
	var res MillisecondsPayload
	err := c.Call(ctx, OpGetTimeInMilliseconds, nil, &res)
	return res.Milliseconds, err
}

// SetTimeInPcmFrames seeks to a frame
func (c *Client) SetTimeInPcmFrames(ctx context.Context, frames uint64) error {
	return c.Call(ctx, OpSetTimeInPcmFrames, FramesPayload{Frames: frames}, nil)
}

// SetTimeInMilliseconds seeks to a millisecond offset
func (c *Client) SetTimeInMilliseconds(ctx context.Context, ms uint64) error {
	return c.Call(ctx, OpSetTimeInMilliseconds, MillisecondsPayload{Milliseconds: ms}, nil)
}

// GetChannels returns the engine channel count
func (c *Client) GetChannels(ctx context.Context) (uint32, error) {
	var res ChannelsResult
	err := c.Call(ctx, OpGetChannels, nil, &res)
	return res.Channels, err
}

// GetSampleRate returns the engine sample rate
func (c *Client) GetSampleRate(ctx context.Context) (uint32, error) {
	var res SampleRateResult
	err := c.Call(ctx, OpGetSampleRate, nil, &res)
	return res.SampleRate, err
}

// SetVolume sets the linear volume
func (c *Client) SetVolume(ctx context.Context, v float64) error {
	return c.Call(ctx, OpSetVolume, VolumePayload{Volume: v}, nil)
}

// GetVolume returns the linear volume
func (c *Client) GetVolume(ctx context.Context) (float64, error) {
	var res VolumePayload
	err := c.Call(ctx, OpGetVolume, nil, &res)
	return res.Volume, err
}

// Close closes the connection
func (c *Client) Close() error {
	c.cancel()
	c.writeMu.Lock()
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	err := c.conn.Close()
	<-c.done
	return err
}
