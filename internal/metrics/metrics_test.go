// ABOUTME: Tests for the prometheus metrics exposure
// ABOUTME: Scrapes the handler with httptest and checks the text output
package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Resonate-Protocol/resonate-engine/internal/testutils"
	"github.com/Resonate-Protocol/resonate-engine/pkg/engine"
)

type fakeSource struct {
	stats  engine.Stats
	state  engine.State
	volume float64
	pos    uint64
}

func (f *fakeSource) Stats() engine.Stats { return f.stats }
func (f *fakeSource) State() engine.State { return f.state }
func (f *fakeSource) GetVolume() float64 { return f.volume }
func (f *fakeSource) GetTimeInPcmFrames() uint64 { return f.pos }

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestHandlerExposesEngineStats(t *testing.T) {
	src := &fakeSource{
		stats: engine.Stats{
			FramesPlayed:      4410,
			Underruns:         2,
			SessionsStarted:   3,
			SessionsCompleted: 1,
			SessionsFailed:    1,
			SessionsStopped:   1,
		},
		state:  engine.StatePlaying,
		volume: 0.5,
		pos:    1234,
	}
	m := New(src)
	m.ConnectionOpened()
	m.Request("getVolume", "")
	m.Request("playAudio", "invalid_file")
	m.NoticeSent()

	body := scrape(t, m)
	want := []string{
		"engine_frames_played_total 4410",
		"engine_underruns_total 2",
		"engine_sessions_started_total 3",
		"engine_sessions_completed_total 1",
		"engine_sessions_failed_total 1",
		"engine_sessions_stopped_total 1",
		"engine_playing 1",
		"engine_volume 0.5",
		"engine_position_frames 1234",
		"engine_control_connections 1",
		`engine_control_requests_total{op="getVolume"} 1`,
		`engine_control_requests_total{op="playAudio"} 1`,
		`engine_control_request_errors_total{kind="invalid_file",op="playAudio"} 1`,
		"engine_control_completed_notices_total 1",
		"go_goroutines",
	}
	for _, w := range want {
		if !strings.Contains(body, w) {
			t.Errorf("scrape output missing %q", w)
		}
	}
}

func TestCollectorsReadOnScrape(t *testing.T) {
	src := &fakeSource{volume: 1}
	m := New(src)

	if body := scrape(t, m); !strings.Contains(body, "engine_playing 0") {
		t.Fatalf("expected idle engine to report engine_playing 0")
	}

	src.state = engine.StatePlaying
	src.stats.FramesPlayed = 99
	body := scrape(t, m)
	if !strings.Contains(body, "engine_playing 1") {
		t.Error("playing gauge not updated")
	}
	if !strings.Contains(body, "engine_frames_played_total 99") {
		t.Error("frames counter not updated")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.Request("stop", "")
	m.NoticeSent()
}

func TestRunReportStatsLoopStops(t *testing.T) {
	src := &fakeSource{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunReportStatsLoop(ctx, src, testutils.TestLoggerSys(t, "METR"), time.Millisecond)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("stats loop did not stop")
	}
}
