// ABOUTME: WebSocket control server for the audio engine
// ABOUTME: Manages connections, the handshake and completion notices
package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-engine/internal/metrics"
	"github.com/Resonate-Protocol/resonate-engine/internal/version"
	"github.com/Resonate-Protocol/resonate-engine/pkg/engine"
	"github.com/Resonate-Protocol/resonate-engine/pkg/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// DefaultPath is where the WebSocket endpoint is mounted
	DefaultPath = "/control"

	handshakeTimeout = 10 * time.Second
	writeDeadline    = 10 * time.Second
	pingInterval     = 30 * time.Second
	sendBuffer       = 64
)

var errDuplicateClient = errors.New("client ID already connected")

// Config holds server configuration
type Config struct {
	// Addr is the listen address, for example ":8937"
	Addr string
	// Path is the WebSocket endpoint; defaults to DefaultPath
	Path string
	// Name is announced in server/hello
	Name string
	// Metrics, when set, counts requests and is served on /metrics
	Metrics *metrics.Metrics
}

// Server exposes one engine to remote control clients
type Server struct {
	config   Config
	serverID string
	engine   *engine.Engine
	upgrader websocket.Upgrader
	mux      *http.ServeMux
	handlers map[string]handlerFunc

	clientsMu sync.Mutex
	clients   map[string]*client

	// playMu keeps the session lookup after PlayAudio paired with its call
	playMu sync.Mutex

	wg sync.WaitGroup
}

// client represents a connected controller
type client struct {
	id   string
	name string
	conn *websocket.Conn

	sendChan chan protocol.Message
	done     chan struct{}
}

// New creates a server for eng
func New(config Config, eng *engine.Engine) *Server {
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.Name == "" {
		config.Name = version.Product
	}
	s := &Server{
		config:   config,
		serverID: uuid.NewString(),
		engine:   eng,
		mux:      http.NewServeMux(),
		clients:  make(map[string]*client),
		upgrader: websocket.Upgrader{
			// Controllers are command-line tools on a trusted network and
			// send no Origin header.
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin != "" {
					log.Warnf("Accepting WebSocket from origin: %s", origin)
				}
				return true
			},
		},
	}
	s.handlers = s.operationTable()
	s.mux.HandleFunc(config.Path, s.handleWebSocket)
	if config.Metrics != nil {
		s.mux.Handle("/metrics", config.Metrics.Handler())
	}
	return s
}

// Handler returns the HTTP handler serving the control endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ID returns the server ID sent in server/hello
func (s *Server) ID() string {
	return s.serverID
}

// Clients returns the number of connected controllers
func (s *Server) Clients() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

// Run serves on config.Addr until ctx is done, then closes every
// connection.
func (s *Server) Run(ctx context.Context) error {
	hs := &http.Server{
		Addr:        s.config.Addr,
		Handler:     s.mux,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- hs.ListenAndServe()
	}()
	log.Infof("Control server listening on %s%s", s.config.Addr, s.config.Path)

	var serverErr error
	select {
	case <-ctx.Done():
		log.Infof("Control server shutting down")
	case err := <-errChan:
		serverErr = fmt.Errorf("HTTP server failed: %w", err)
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutCtx); err != nil {
		log.Warnf("HTTP server shutdown error: %v", err)
	}

	// Shutdown does not track hijacked connections.
	s.closeClients()
	s.wg.Wait()
	log.Infof("Control server stopped")

	if serverErr != nil {
		return serverErr
	}
	return ctx.Err()
}

func (s *Server) closeClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for _, c := range s.clients {
		c.conn.Close()
	}
}

// handleWebSocket upgrades the request and serves the connection
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocket upgrade error: %v", err)
		return
	}
	log.Debugf("New WebSocket connection from %s", r.RemoteAddr)

	s.wg.Add(1)
	defer s.wg.Done()
	s.handleConnection(conn)
}

// handleConnection runs the handshake and then the request loop
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	hello, err := s.readHello(conn)
	if err != nil {
		log.Warnf("Handshake failed: %v", err)
		writeError(conn, "", err)
		return
	}

	c := &client{
		id:       hello.ClientID,
		name:     hello.Name,
		conn:     conn,
		sendChan: make(chan protocol.Message, sendBuffer),
		done:     make(chan struct{}),
	}

	// Check for duplicate client ID and register atomically
	s.clientsMu.Lock()
	if existing, ok := s.clients[c.id]; ok {
		s.clientsMu.Unlock()
		log.Warnf("Client ID %s already connected (name: %s), rejecting duplicate", c.id, existing.name)
		writeError(conn, "", fmt.Errorf("%w: %w", protocol.ErrBadRequest, errDuplicateClient))
		return
	}
	s.clients[c.id] = c
	s.clientsMu.Unlock()
	s.config.Metrics.ConnectionOpened()

	// The writer only exits once done is closed, so unregister and close
	// it before waiting.
	var writerDone chan struct{}
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c.id)
		s.clientsMu.Unlock()
		close(c.done)
		if writerDone != nil {
			<-writerDone
		}
		s.config.Metrics.ConnectionClosed()
		log.Infof("Client disconnected: %s", c.name)
	}()

	log.Infof("Client connected: %s (ID: %s)", c.name, c.id)

	if err := s.sendServerHello(conn); err != nil {
		log.Warnf("Error sending server hello: %v", err)
		return
	}

	writerDone = make(chan struct{})
	go func() {
		defer close(writerDone)
		s.clientWriter(c)
	}()

	for {
		var msg protocol.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debugf("WebSocket error from %s: %v", c.name, err)
			}
			return
		}
		s.handleRequest(c, msg)
	}
}

// readHello waits for client/hello and validates it
func (s *Server) readHello(conn *websocket.Conn) (protocol.ClientHello, error) {
	var hello protocol.ClientHello

	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	defer conn.SetReadDeadline(time.Time{})

	var msg protocol.Message
	if err := conn.ReadJSON(&msg); err != nil {
		return hello, fmt.Errorf("%w: reading hello: %v", protocol.ErrBadRequest, err)
	}
	if msg.Type != protocol.TypeClientHello {
		return hello, fmt.Errorf("%w: expected %s, got %s", protocol.ErrBadRequest, protocol.TypeClientHello, msg.Type)
	}
	if err := msg.Decode(&hello); err != nil {
		return hello, fmt.Errorf("%w: %v", protocol.ErrBadRequest, err)
	}
	if hello.ClientID == "" {
		return hello, fmt.Errorf("%w: client hello missing client_id", protocol.ErrBadRequest)
	}
	if hello.Version != protocol.Version {
		return hello, fmt.Errorf("%w: unsupported protocol version %d", protocol.ErrBadRequest, hello.Version)
	}
	if hello.Name == "" {
		hello.Name = hello.ClientID
	}
	return hello, nil
}

func (s *Server) sendServerHello(conn *websocket.Conn) error {
	format := s.engine.Format()
	msg, err := protocol.NewMessage(protocol.TypeServerHello, "", protocol.ServerHello{
		ServerID:   s.serverID,
		Name:       s.config.Name,
		Version:    protocol.Version,
		Channels:   s.engine.GetChannels(),
		SampleRate: s.engine.GetSampleRate(),
		BitDepth:   format.BitDepth,
		Backend:    s.engine.BackendName(),
		Operations: protocol.Operations,
		DeviceInfo: &protocol.DeviceInfo{
			ProductName:     version.Product,
			Manufacturer:    version.Manufacturer,
			SoftwareVersion: version.Version,
		},
	})
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return conn.WriteJSON(msg)
}

// clientWriter is the only writer on the connection after the handshake
func (s *Server) clientWriter(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case msg := <-c.sendChan:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Warnf("Error writing to %s: %v", c.name, err)
				c.conn.Close()
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

// send queues msg for the client. It fails when the client is gone or
// not keeping up.
func (c *client) send(msg protocol.Message) error {
	select {
	case <-c.done:
		return errors.New("client disconnected")
	default:
	}
	select {
	case c.sendChan <- msg:
		return nil
	case <-c.done:
		return errors.New("client disconnected")
	default:
		return errors.New("client send buffer full")
	}
}

// writeError writes an error directly; used before the writer starts
func writeError(conn *websocket.Conn, id string, err error) {
	msg, merr := protocol.NewMessage(protocol.TypeError, id, protocol.NewErrorPayload(err))
	if merr != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	conn.WriteJSON(msg)
}
