// ABOUTME: Prometheus metrics for the engine and its control server
// ABOUTME: Exposes engine counters on a private registry through promhttp
package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/Resonate-Protocol/resonate-engine/pkg/engine"
	"github.com/decred/slog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "engine"

// Source is the part of the engine the collectors read from
type Source interface {
	Stats() engine.Stats
	State() engine.State
	GetVolume() float64
	GetTimeInPcmFrames() uint64
}

// Metrics holds the registry and the control server instruments
type Metrics struct {
	reg *prometheus.Registry

	connections   prometheus.Gauge
	requests      *prometheus.CounterVec
	requestErrors *prometheus.CounterVec
	notices       prometheus.Counter
}

// New registers collectors that read src on every scrape.
func New(src Source) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	counter := func(name, help string, get func(engine.Stats) uint64) {
		f.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(get(src.Stats())) })
	}
	counter("frames_played_total", "PCM frames delivered to the output device",
		func(s engine.Stats) uint64 { return s.FramesPlayed })
	counter("underruns_total", "Device callbacks that found the decode-ahead buffer short",
		func(s engine.Stats) uint64 { return s.Underruns })
	counter("sessions_started_total", "Playback sessions started",
		func(s engine.Stats) uint64 { return s.SessionsStarted })
	counter("sessions_completed_total", "Playback sessions that reached the end of their source",
		func(s engine.Stats) uint64 { return s.SessionsCompleted })
	counter("sessions_failed_total", "Playback sessions that ended with an error",
		func(s engine.Stats) uint64 { return s.SessionsFailed })
	counter("sessions_stopped_total", "Playback sessions stopped on request",
		func(s engine.Stats) uint64 { return s.SessionsStopped })

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "playing",
		Help:      "1 while a session is playing",
	}, func() float64 {
		if src.State() == engine.StatePlaying {
			return 1
		}
		return 0
	})
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "volume",
		Help:      "Linear output gain",
	}, src.GetVolume)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "position_frames",
		Help:      "Current playback position in PCM frames",
	}, func() float64 { return float64(src.GetTimeInPcmFrames()) })

	return &Metrics{
		reg: reg,
		connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "control",
			Name:      "connections",
			Help:      "Open control connections",
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "control",
			Name:      "requests_total",
			Help:      "Control requests handled, by operation",
		}, []string{"op"}),
		requestErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "control",
			Name:      "request_errors_total",
			Help:      "Control requests that failed, by operation and error kind",
		}, []string{"op", "kind"}),
		notices: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "control",
			Name:      "completed_notices_total",
			Help:      "Completion notices pushed to control clients",
		}),
	}
}

// Registry returns the registry backing the handler
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ConnectionOpened counts a new control connection
func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

// ConnectionClosed uncounts a control connection
func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

// Request records one handled request. kind is empty on success.
func (m *Metrics) Request(op, kind string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op).Inc()
	if kind != "" {
		m.requestErrors.WithLabelValues(op, kind).Inc()
	}
}

// NoticeSent counts a pushed completion notice
func (m *Metrics) NoticeSent() {
	if m != nil {
		m.notices.Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(
		m.reg, promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}),
	)
}

// RunReportStatsLoop logs a summary of the engine counters every interval
// until ctx is done.
func RunReportStatsLoop(ctx context.Context, src Source, log slog.Logger, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last engine.Stats
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		st := src.Stats()
		if st == last {
			continue
		}
		log.Infof("Stats: state %s, %d frames played (+%d), %d underruns (+%d), "+
			"sessions %d started %d completed %d failed %d stopped",
			src.State(), st.FramesPlayed, st.FramesPlayed-last.FramesPlayed,
			st.Underruns, st.Underruns-last.Underruns,
			st.SessionsStarted, st.SessionsCompleted, st.SessionsFailed,
			st.SessionsStopped)
		last = st
	}
}

// ListenAndServe exposes the handler on addr under /metrics until ctx is
// done.
func (m *Metrics) ListenAndServe(ctx context.Context, addr string, log slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	hs := http.Server{
		Addr:        addr,
		BaseContext: func(net.Listener) context.Context { return ctx },
		Handler:     mux,
	}
	log.Infof("Exposing prometheus metrics on %s", addr)
	go func() {
		<-ctx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		hs.Shutdown(ctx)
	}()
	err := hs.ListenAndServe()
	if err == http.ErrServerClosed {
		return ctx.Err()
	}
	return err
}
