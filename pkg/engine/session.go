// ABOUTME: Playback session bookkeeping and completion notices
// ABOUTME: Each PlayAudio call gets one session and at most one notice
package engine

import (
	"time"

	"github.com/google/uuid"
)

// Status strings carried by completion notices
const (
	StatusFinished = "Audio finished playing!"
	StatusFailed   = "Playback failed"
)

// CompletionNotice reports the end of a session that reached StateCompleted.
// Stopped sessions never produce one.
type CompletionNotice struct {
	SessionID string
	Path      string
	Status    string
	// Err is set when playback ended because of a failure
	Err error
}

// SessionInfo is a snapshot of the current session
type SessionInfo struct {
	ID          string
	Path        string
	State       State
	Started     time.Time
	Position    uint64
	TotalFrames uint64
	TotalKnown  bool
	Volume      float64
}

type session struct {
	id      string
	path    string
	started time.Time
	track   *Track
	onDone  func(CompletionNotice)
}

func newSession(path string, onDone func(CompletionNotice)) *session {
	return &session{
		id:      uuid.NewString(),
		path:    path,
		started: time.Now(),
		onDone:  onDone,
	}
}

func (s *session) notice() CompletionNotice {
	n := CompletionNotice{
		SessionID: s.id,
		Path:      s.path,
		Status:    StatusFinished,
	}
	if err := s.track.Err(); err != nil {
		n.Status = StatusFailed + ": " + err.Error()
		n.Err = err
	}
	return n
}

// watch waits for the session to end and delivers its notice from a
// control goroutine.
func (e *Engine) watch(s *session) {
	select {
	case <-s.track.Finished():
	case <-s.track.Stopped():
		e.counters.stopped.Add(1)
		e.log.Debugf("Session %s stopped", s.id)
		return
	}

	e.transport.Release(s.track)
	n := s.notice()
	if n.Err != nil {
		e.counters.failed.Add(1)
		e.log.Warnf("Session %s (%s) failed: %v", s.id, s.path, n.Err)
	} else {
		e.counters.completed.Add(1)
		e.log.Infof("Session %s (%s) finished", s.id, s.path)
	}
	if s.onDone != nil {
		s.onDone(n)
	}
}
