// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, key handling and rendering
package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestNewModel(t *testing.T) {
	model := NewModel(nil) // Controls are optional for testing

	if model.volume != 100 {
		t.Errorf("expected default volume 100, got %d", model.volume)
	}
	if model.state != "idle" {
		t.Errorf("expected idle state, got %q", model.state)
	}
	if model.showDebug {
		t.Error("expected showDebug to be false initially")
	}
}

func TestStatusMsgSource(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{
		Path:    "/music/song.flac",
		Device:  "Speakers",
		Backend: "malgo",
		State:   "playing",
	})

	if model.path != "/music/song.flac" {
		t.Errorf("expected path '/music/song.flac', got '%s'", model.path)
	}
	if model.device != "Speakers" || model.backend != "malgo" {
		t.Errorf("unexpected device %q/%q", model.device, model.backend)
	}
	if model.state != "playing" {
		t.Errorf("expected state 'playing', got '%s'", model.state)
	}
}

func TestStatusMsgPosition(t *testing.T) {
	model := NewModel(nil)

	pos := 90 * time.Second
	dur := 3 * time.Minute
	model.applyStatus(StatusMsg{Position: &pos, Duration: &dur})
	if model.position != pos || model.duration != dur {
		t.Errorf("unexpected position %v / %v", model.position, model.duration)
	}

	// Rewinding to zero must be applied.
	zero := time.Duration(0)
	model.applyStatus(StatusMsg{Position: &zero})
	if model.position != 0 {
		t.Errorf("expected position reset to 0, got %v", model.position)
	}
	if model.duration != dur {
		t.Error("duration should survive an update without one")
	}
}

func TestStatusMsgFormat(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{SampleRate: 48000, Channels: 2, BitDepth: 24})

	if model.sampleRate != 48000 || model.channels != 2 || model.bitDepth != 24 {
		t.Errorf("unexpected format %d/%d/%d", model.sampleRate, model.channels, model.bitDepth)
	}
}

func TestStatusMsgVolume(t *testing.T) {
	model := NewModel(nil)

	muted := 0
	model.applyStatus(StatusMsg{Volume: &muted})
	if model.volume != 0 {
		t.Errorf("expected volume 0, got %d", model.volume)
	}
}

func TestStatusMsgStats(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{FramesPlayed: 48000, Underruns: 2, Goroutines: 12, MemAlloc: 1 << 20})

	if model.framesPlayed != 48000 || model.underruns != 2 {
		t.Errorf("unexpected stats %d/%d", model.framesPlayed, model.underruns)
	}
	if model.goroutines != 12 || model.memAlloc != 1<<20 {
		t.Errorf("unexpected runtime stats %d/%d", model.goroutines, model.memAlloc)
	}
}

func TestVolumeKeys(t *testing.T) {
	controls := NewControls()
	var m tea.Model = NewModel(controls)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if got := m.(Model).volume; got != 105 {
		t.Errorf("expected volume 105 after up, got %d", got)
	}
	if v := <-controls.Volume; v != 105 {
		t.Errorf("expected 105 sent to player, got %d", v)
	}

	for i := 0; i < 50; i++ {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	if got := m.(Model).volume; got != 0 {
		t.Errorf("expected volume clamped to 0, got %d", got)
	}

	for i := 0; i < 50; i++ {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	}
	if got := m.(Model).volume; got != maxVolume {
		t.Errorf("expected volume clamped to %d, got %d", maxVolume, got)
	}
}

func TestSeekAndStopKeys(t *testing.T) {
	controls := NewControls()
	var m tea.Model = NewModel(controls)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	if d := <-controls.Seek; d != seekStep {
		t.Errorf("expected +%v, got %v", seekStep, d)
	}
	if d := <-controls.Seek; d != -seekStep {
		t.Errorf("expected -%v, got %v", seekStep, d)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	select {
	case <-controls.Stop:
	default:
		t.Error("expected stop action")
	}
}

func TestQuitKey(t *testing.T) {
	controls := NewControls()
	m := NewModel(controls)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	select {
	case <-controls.Quit:
	default:
		t.Error("expected quit action")
	}
}

func TestKeysWithoutControls(t *testing.T) {
	m := NewModel(nil)
	// Must not panic without a player attached.
	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
}

func TestDebugToggle(t *testing.T) {
	var m tea.Model = NewModel(nil)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	if !m.(Model).showDebug {
		t.Error("expected debug view on")
	}
}

func TestView(t *testing.T) {
	m := NewModel(nil)
	if m.View() != "Loading..." {
		t.Error("expected loading view before the window size is known")
	}

	var tm tea.Model = m
	tm, _ = tm.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	pos := 65 * time.Second
	dur := 130 * time.Second
	tm, _ = tm.Update(StatusMsg{
		Path:       "/music/song.flac",
		State:      "playing",
		Position:   &pos,
		Duration:   &dur,
		SampleRate: 44100,
		Channels:   2,
		BitDepth:   16,
	})

	view := tm.View()
	for _, want := range []string{"song.flac", "playing", "1:05", "2:10", "44100Hz Stereo 16-bit"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		value, max, width int
		filled            int
	}{
		{0, 100, 10, 0},
		{50, 100, 10, 5},
		{100, 100, 10, 10},
		{150, 100, 10, 10},
		{5, 0, 10, 0},
	}

	for _, tt := range tests {
		bar := renderBar(tt.value, tt.max, tt.width)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("renderBar(%d, %d, %d): expected %d filled, got %d", tt.value, tt.max, tt.width, tt.filled, got)
		}
		if got := strings.Count(bar, "█") + strings.Count(bar, "░"); got != tt.width {
			t.Errorf("renderBar(%d, %d, %d): expected width %d, got %d", tt.value, tt.max, tt.width, tt.width, got)
		}
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{59 * time.Second, "0:59"},
		{61*time.Second + 900*time.Millisecond, "1:01"},
		{62 * time.Minute, "62:00"},
	}
	for _, tt := range tests {
		if got := formatTime(tt.d); got != tt.want {
			t.Errorf("formatTime(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestChannelName(t *testing.T) {
	tests := map[int]string{1: "Mono", 2: "Stereo", 6: "6ch"}
	for ch, want := range tests {
		if got := channelName(ch); got != want {
			t.Errorf("channelName(%d) = %q, want %q", ch, got, want)
		}
	}
}
