// ABOUTME: Maps protocol operations onto engine calls
// ABOUTME: Each handler decodes its payload and returns the result payload
package control

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-engine/pkg/engine"
	"github.com/Resonate-Protocol/resonate-engine/pkg/protocol"
)

type handlerFunc func(c *client, msg protocol.Message) (interface{}, error)

func (s *Server) operationTable() map[string]handlerFunc {
	return map[string]handlerFunc{
		protocol.OpPlayAudio:             s.handlePlayAudio,
		protocol.OpStop:                  s.handleStop,
		protocol.OpGetDevices:            s.handleGetDevices,
		protocol.OpGetTimeInPcmFrames:    s.handleGetTimeInPcmFrames,
		protocol.OpGetTimeInMilliseconds: s.handleGetTimeInMilliseconds,
		protocol.OpSetTimeInPcmFrames:    s.handleSetTimeInPcmFrames,
		protocol.OpSetTimeInMilliseconds: s.handleSetTimeInMilliseconds,
		protocol.OpGetChannels:           s.handleGetChannels,
		protocol.OpGetSampleRate:         s.handleGetSampleRate,
		protocol.OpSetVolume:             s.handleSetVolume,
		protocol.OpGetVolume:             s.handleGetVolume,
	}
}

// handleRequest runs one request and queues its reply
func (s *Server) handleRequest(c *client, msg protocol.Message) {
	var (
		payload interface{}
		err     error
	)
	h, ok := s.handlers[msg.Type]
	switch {
	case msg.ID == "":
		err = fmt.Errorf("%w: request %s has no id", protocol.ErrBadRequest, msg.Type)
	case !ok:
		err = fmt.Errorf("%w: unknown operation %q", protocol.ErrBadRequest, msg.Type)
	default:
		payload, err = h(c, msg)
	}

	var reply protocol.Message
	if err != nil {
		kind := protocol.ErrorKind(err)
		s.config.Metrics.Request(msg.Type, kind)
		log.Debugf("%s from %s failed: %v", msg.Type, c.name, err)
		reply, err = protocol.NewMessage(protocol.TypeError, msg.ID, protocol.NewErrorPayload(err))
	} else {
		s.config.Metrics.Request(msg.Type, "")
		reply, err = protocol.NewMessage(protocol.TypeResult, msg.ID, payload)
	}
	if err != nil {
		log.Errorf("Encoding reply to %s: %v", msg.Type, err)
		return
	}
	if err := c.send(reply); err != nil {
		log.Warnf("Dropping reply to %s for %s: %v", msg.Type, c.name, err)
	}
}

func decodeRequest(msg protocol.Message, v interface{}) error {
	if err := msg.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrBadRequest, err)
	}
	return nil
}

func (s *Server) handlePlayAudio(c *client, msg protocol.Message) (interface{}, error) {
	var req protocol.PlayAudioRequest
	if err := decodeRequest(msg, &req); err != nil {
		return nil, err
	}

	s.playMu.Lock()
	defer s.playMu.Unlock()
	ack, err := s.engine.PlayAudio(req.Path, func(n engine.CompletionNotice) {
		s.notify(c, n)
	})
	if err != nil {
		return nil, err
	}
	res := protocol.PlayAudioResult{Ack: ack}
	if info, ok := s.engine.Session(); ok {
		res.SessionID = info.ID
	}
	log.Infof("%s started %s (session %s)", c.name, req.Path, res.SessionID)
	return res, nil
}

// notify pushes a completion notice to the connection that started the
// session. Notices for departed clients are dropped.
func (s *Server) notify(c *client, n engine.CompletionNotice) {
	payload := protocol.Completed{
		SessionID: n.SessionID,
		Path:      n.Path,
		Status:    n.Status,
	}
	if n.Err != nil {
		payload.ErrorKind = protocol.ErrorKind(n.Err)
		payload.Error = n.Err.Error()
	}
	msg, err := protocol.NewMessage(protocol.TypeCompleted, "", payload)
	if err != nil {
		log.Errorf("Encoding notice: %v", err)
		return
	}
	if err := c.send(msg); err != nil {
		log.Debugf("Dropping notice for session %s: %v", n.SessionID, err)
		return
	}
	s.config.Metrics.NoticeSent()
}

func (s *Server) handleStop(c *client, msg protocol.Message) (interface{}, error) {
	stopped, err := s.engine.Stop()
	if err != nil {
		return nil, err
	}
	return protocol.StopResult{Stopped: stopped}, nil
}

func (s *Server) handleGetDevices(c *client, msg protocol.Message) (interface{}, error) {
	list, err := s.engine.GetDevices()
	if err != nil {
		return nil, err
	}
	res := protocol.DevicesResult{
		Playback: make([]protocol.Device, 0, len(list.Playback)),
		Capture:  make([]protocol.Device, 0, len(list.Capture)),
	}
	for _, d := range list.Playback {
		res.Playback = append(res.Playback, protocol.Device{ID: d.ID, Name: d.Name, IsDefault: d.IsDefault})
	}
	for _, d := range list.Capture {
		res.Capture = append(res.Capture, protocol.Device{ID: d.ID, Name: d.Name, IsDefault: d.IsDefault})
	}
	return res, nil
}

func (s *Server) handleGetTimeInPcmFrames(c *client, msg protocol.Message) (interface{}, error) {
	return protocol.FramesPayload{Frames: s.engine.GetTimeInPcmFrames()}, nil
}

func (s *Server) handleGetTimeInMilliseconds(c *client, msg protocol.Message) (interface{}, error) {
	ms, err := s.engine.GetTimeInMilliseconds()
	if err != nil {
		return nil, err
	}
	return protocol.MillisecondsPayload{Milliseconds: ms}, nil
}

func (s *Server) handleSetTimeInPcmFrames(c *client, msg protocol.Message) (interface{}, error) {
	var req protocol.FramesPayload
	if err := decodeRequest(msg, &req); err != nil {
		return nil, err
	}
	if err := s.engine.SetTimeInPcmFrames(req.Frames); err != nil {
		return nil, err
	}
	return protocol.FramesPayload{Frames: s.engine.GetTimeInPcmFrames()}, nil
}

func (s *Server) handleSetTimeInMilliseconds(c *client, msg protocol.Message) (interface{}, error) {
	var req protocol.MillisecondsPayload
	if err := decodeRequest(msg, &req); err != nil {
		return nil, err
	}
	if err := s.engine.SetTimeInMilliseconds(req.Milliseconds); err != nil {
		return nil, err
	}
	return protocol.FramesPayload{Frames: s.engine.GetTimeInPcmFrames()}, nil
}

func (s *Server) handleGetChannels(c *client, msg protocol.Message) (interface{}, error) {
	return protocol.ChannelsResult{Channels: s.engine.GetChannels()}, nil
}

func (s *Server) handleGetSampleRate(c *client, msg protocol.Message) (interface{}, error) {
	return protocol.SampleRateResult{SampleRate: s.engine.GetSampleRate()}, nil
}

func (s *Server) handleSetVolume(c *client, msg protocol.Message) (interface{}, error) {
	var req protocol.VolumePayload
	if err := decodeRequest(msg, &req); err != nil {
		return nil, err
	}
	if err := s.engine.SetVolume(req.Volume); err != nil {
		return nil, err
	}
	return protocol.VolumePayload{Volume: s.engine.GetVolume()}, nil
}

func (s *Server) handleGetVolume(c *client, msg protocol.Message) (interface{}, error) {
	return protocol.VolumePayload{Volume: s.engine.GetVolume()}, nil
}
