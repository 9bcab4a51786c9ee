// ABOUTME: Bubbletea model for the player TUI
// ABOUTME: Shows the playing file, progress, volume and engine stats
package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	volumeStep = 5
	maxVolume  = 200
	seekStep   = 5 * time.Second
)

// Model represents the TUI state
type Model struct {
	// Source
	path     string
	device   string
	backend  string
	state    string
	position time.Duration
	duration time.Duration // zero when unknown
	status   string

	// Format
	sampleRate int
	channels   int
	bitDepth   int

	// Playback
	volume int // percent

	// Stats
	framesPlayed uint64
	underruns    uint64
	goroutines   int
	memAlloc     uint64

	showDebug bool

	controls *Controls

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := m.renderHeader()
	s += m.renderProgress()
	s += m.renderControls()
	s += m.renderStats()
	if m.showDebug {
		s += m.renderDebug()
	}
	s += m.renderHelp()
	return s
}

// renderHeader renders the file and device
func (m Model) renderHeader() string {
	file := "(nothing playing)"
	if m.path != "" {
		file = filepath.Base(m.path)
	}
	device := m.device
	if device == "" {
		device = "default device"
	}
	if m.backend != "" {
		device += " (" + m.backend + ")"
	}

	return fmt.Sprintf(`┌─ Resonate Engine ────────────────────────────────────┐
│ File:   %-45s │
│ Device: %-45s │
├──────────────────────────────────────────────────────┤
`, truncate(file, 45), truncate(device, 45))
}

// renderProgress renders state, position and format
func (m Model) renderProgress() string {
	total := "--:--"
	var bar string
	if m.duration > 0 {
		total = formatTime(m.duration)
		bar = renderBar(int(m.position/time.Millisecond), int(m.duration/time.Millisecond), 30)
	} else {
		bar = strings.Repeat("░", 30)
	}

	s := fmt.Sprintf("│ State:  %-45s │\n", truncate(m.state, 45))
	s += fmt.Sprintf("│ [%s] %5s / %-5s%-4s │\n", bar, formatTime(m.position), total, "")
	if m.sampleRate > 0 {
		s += fmt.Sprintf("│ Format: %-45s │\n",
			fmt.Sprintf("%dHz %s %d-bit", m.sampleRate, channelName(m.channels), m.bitDepth))
	}
	if m.status != "" {
		s += fmt.Sprintf("│ %-52s │\n", truncate(m.status, 52))
	}
	return s
}

// renderControls renders the volume
func (m Model) renderControls() string {
	volumeBar := renderBar(m.volume, maxVolume, 20)
	return fmt.Sprintf("│                                                      │\n"+
		"│ Volume: [%s] %3d%%%-19s │\n", volumeBar, m.volume, "")
}

// renderStats renders playback statistics
func (m Model) renderStats() string {
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Stats:  Frames: %-12d Underruns: %-12d │
`, m.framesPlayed, m.underruns)
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ ↑/↓:Volume  ←/→:Seek 5s  s:Stop  d:Debug  q:Quit    │
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders runtime information
func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Goroutines: %-38d │
│   Heap:       %-38s │
`, m.goroutines, fmt.Sprintf("%.1f MiB", float64(m.memAlloc)/(1<<20)))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.controls.quit()
		return m, tea.Quit
	case "up":
		m.volume = min(m.volume+volumeStep, maxVolume)
		m.controls.setVolume(m.volume)
	case "down":
		m.volume = max(m.volume-volumeStep, 0)
		m.controls.setVolume(m.volume)
	case "right":
		m.controls.seek(seekStep)
	case "left":
		m.controls.seek(-seekStep)
	case "s":
		m.controls.stop()
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Path != "" {
		m.path = msg.Path
	}
	if msg.Device != "" {
		m.device = msg.Device
		m.backend = msg.Backend
	}
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.Position != nil {
		m.position = *msg.Position
	}
	if msg.Duration != nil {
		m.duration = *msg.Duration
	}
	if msg.Status != "" {
		m.status = msg.Status
	}
	if msg.SampleRate != 0 {
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
		m.bitDepth = msg.BitDepth
	}
	if msg.Volume != nil {
		m.volume = *msg.Volume
	}
	if msg.FramesPlayed != 0 || msg.Underruns != 0 {
		m.framesPlayed = msg.FramesPlayed
		m.underruns = msg.Underruns
	}
	if msg.Goroutines != 0 {
		m.goroutines = msg.Goroutines
		m.memAlloc = msg.MemAlloc
	}
}

// StatusMsg updates TUI state. Zero and nil fields leave the model alone.
type StatusMsg struct {
	Path         string
	Device       string
	Backend      string
	State        string
	Position     *time.Duration
	Duration     *time.Duration
	Status       string
	SampleRate   int
	Channels     int
	BitDepth     int
	Volume       *int
	FramesPlayed uint64
	Underruns    uint64
	Goroutines   int
	MemAlloc     uint64
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := 0
	if max > 0 {
		filled = min(value*width/max, width)
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}

func formatTime(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
