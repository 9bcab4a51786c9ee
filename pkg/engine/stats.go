// ABOUTME: Engine counters for monitoring
// ABOUTME: Snapshots are cheap and safe to take from any goroutine
package engine

import "sync/atomic"

// Stats is a point-in-time snapshot of engine counters
type Stats struct {
	FramesPlayed      uint64
	Underruns         uint64
	SessionsStarted   uint64
	SessionsCompleted uint64
	SessionsFailed    uint64
	SessionsStopped   uint64
}

type counters struct {
	started   atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	stopped   atomic.Uint64
}

// Stats returns the current counters
func (e *Engine) Stats() Stats {
	return Stats{
		FramesPlayed:      e.transport.FramesPlayed(),
		Underruns:         e.transport.Underruns(),
		SessionsStarted:   e.counters.started.Load(),
		SessionsCompleted: e.counters.completed.Load(),
		SessionsFailed:    e.counters.failed.Load(),
		SessionsStopped:   e.counters.stopped.Load(),
	}
}
