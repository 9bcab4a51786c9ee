// ABOUTME: TUI initialization and control channels
// ABOUTME: Wraps the bubbletea program and forwards key actions to the player
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Controls carries user actions from the TUI to the player loop
type Controls struct {
	Volume chan int           // percent
	Seek   chan time.Duration // relative offset
	Stop   chan struct{}
	Quit   chan struct{}
}

// NewControls creates a new control handler
func NewControls() *Controls {
	return &Controls{
		Volume: make(chan int, 10),
		Seek:   make(chan time.Duration, 10),
		Stop:   make(chan struct{}, 1),
		Quit:   make(chan struct{}, 1),
	}
}

// The senders drop actions rather than block the UI when the player lags.

func (c *Controls) setVolume(percent int) {
	if c == nil {
		return
	}
	select {
	case c.Volume <- percent:
	default:
	}
}

func (c *Controls) seek(d time.Duration) {
	if c == nil {
		return
	}
	select {
	case c.Seek <- d:
	default:
	}
}

func (c *Controls) stop() {
	if c == nil {
		return
	}
	select {
	case c.Stop <- struct{}{}:
	default:
	}
}

func (c *Controls) quit() {
	if c == nil {
		return
	}
	select {
	case c.Quit <- struct{}{}:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls) Model {
	return Model{
		volume:   100,
		state:    "idle",
		controls: controls,
	}
}

// Run creates the TUI program; the caller starts it
func Run(controls *Controls) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(controls), tea.WithAltScreen())
	return p, nil
}
