// ABOUTME: Entry point for the resonate-engine player
// ABOUTME: Plays one audio file on a local device with an optional TUI
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/resonate-engine/internal/config"
	"github.com/Resonate-Protocol/resonate-engine/internal/logging"
	"github.com/Resonate-Protocol/resonate-engine/internal/ui"
	"github.com/Resonate-Protocol/resonate-engine/internal/version"
	"github.com/Resonate-Protocol/resonate-engine/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-engine/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-engine/pkg/audio/timebase"
	"github.com/Resonate-Protocol/resonate-engine/pkg/engine"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/decred/slog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, args, err := config.Load(os.Args[1:])
	if err != nil {
		if config.IsHelp(err) {
			fmt.Println(err)
			return nil
		}
		return err
	}
	if cfg.ShowVersion {
		fmt.Println(version.String())
		return nil
	}

	// TUI mode: log only to file
	useTUI := !cfg.NoTUI && !cfg.ListDevices
	var stdOut io.Writer = os.Stdout
	if useTUI {
		stdOut = nil
	}
	lb, err := logging.New(cfg.LogFile, cfg.DebugLevel, stdOut)
	if err != nil {
		return err
	}
	defer lb.Close()
	decode.UseLogger(lb.Logger(logging.SubsysDecode))
	output.UseLogger(lb.Logger(logging.SubsysOutput))
	log := lb.Logger(logging.SubsysMain)

	backend, err := output.New(cfg.Backend)
	if err != nil {
		return err
	}
	ecfg := cfg.Engine()
	ecfg.Backend = backend
	ecfg.Log = lb.Logger(logging.SubsysEngine)
	eng, err := engine.New(ecfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	if cfg.ListDevices {
		return listDevices(eng)
	}
	if len(args) != 1 {
		return errors.New("usage: resonate-engine [options] <audio file>")
	}
	path := args[0]

	if err := eng.SetVolume(cfg.Volume); err != nil {
		return err
	}

	done := make(chan engine.CompletionNotice, 1)
	ack, err := eng.PlayAudio(path, func(n engine.CompletionNotice) {
		done <- n
	})
	if err != nil {
		return err
	}
	log.Infof("%s", ack)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if !useTUI {
		select {
		case n := <-done:
			log.Infof("%s", n.Status)
			return n.Err
		case <-sigChan:
			log.Infof("Shutdown signal received")
			return nil
		}
	}

	controls := ui.NewControls()
	prog, err := ui.Run(controls)
	if err != nil {
		return fmt.Errorf("failed to start TUI: %w", err)
	}
	progDone := make(chan error, 1)
	go func() {
		_, err := prog.Run()
		progDone <- err
	}()

	device := cfg.Device
	if device == "" {
		device = "default"
	}
	format := eng.Format()
	vol := int(cfg.Volume*100 + 0.5)
	prog.Send(ui.StatusMsg{
		Path:       path,
		Device:     device,
		Backend:    backend.Name(),
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		BitDepth:   format.BitDepth,
		Volume:     &vol,
		Status:     ack,
	})

	quit := make(chan struct{})
	defer close(quit)
	go handleControls(eng, controls, log, quit)
	go statusUpdateLoop(eng, prog, quit)

	var playErr error
	for {
		select {
		case n := <-done:
			log.Infof("%s", n.Status)
			status := n.Status
			if n.Err != nil {
				status = fmt.Sprintf("%s: %v", n.Status, n.Err)
				playErr = n.Err
			}
			prog.Send(ui.StatusMsg{Status: status})
		case <-sigChan:
			log.Infof("Shutdown signal received")
			prog.Quit()
		case err := <-progDone:
			// The TUI quits itself on q or ctrl+c.
			if err != nil {
				return err
			}
			return playErr
		}
	}
}

// listDevices prints the playback and capture endpoints
func listDevices(eng *engine.Engine) error {
	list, err := eng.GetDevices()
	if err != nil {
		return err
	}
	show := func(title string, devs []output.DeviceDescriptor) {
		fmt.Printf("%s devices:\n", title)
		if len(devs) == 0 {
			fmt.Println("  (none)")
		}
		for _, d := range devs {
			mark := " "
			if d.IsDefault {
				mark = "*"
			}
			fmt.Printf(" %s %s\n", mark, d.Name)
		}
	}
	show("Playback", list.Playback)
	show("Capture", list.Capture)
	return nil
}

// handleControls applies TUI actions to the engine
func handleControls(eng *engine.Engine, controls *ui.Controls, log slog.Logger, quit <-chan struct{}) {
	for {
		select {
		case percent := <-controls.Volume:
			if err := eng.SetVolume(float64(percent) / 100); err != nil {
				log.Warnf("Volume change: %v", err)
			}
		case d := <-controls.Seek:
			ms, err := eng.GetTimeInMilliseconds()
			if err != nil {
				log.Warnf("Reading position: %v", err)
				continue
			}
			target := int64(ms) + d.Milliseconds()
			if err := eng.SetTimeInMilliseconds(uint64(max(target, 0))); err != nil {
				log.Warnf("Seek: %v", err)
			}
		case <-controls.Stop:
			if _, err := eng.Stop(); err != nil {
				log.Warnf("Stop: %v", err)
			}
		case <-quit:
			return
		}
	}
}

// statusUpdateLoop periodically updates the TUI with the session state
func statusUpdateLoop(eng *engine.Engine, prog *tea.Program, quit <-chan struct{}) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	// Use a slower ticker for expensive runtime stats to avoid GC pauses
	runtimeStatsTicker := time.NewTicker(2 * time.Second)
	defer runtimeStatsTicker.Stop()

	rate := eng.GetSampleRate()
	var lastGoroutines int
	var lastMemAlloc uint64

	for {
		select {
		case <-quit:
			return

		case <-runtimeStatsTicker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			lastGoroutines = runtime.NumGoroutine()
			lastMemAlloc = m.Alloc

		case <-ticker.C:
			info, ok := eng.Session()
			if !ok {
				continue
			}
			stats := eng.Stats()
			position, _ := timebase.FramesToDuration(info.Position, rate)
			msg := ui.StatusMsg{
				State:        info.State.String(),
				Position:     &position,
				FramesPlayed: stats.FramesPlayed,
				Underruns:    stats.Underruns,
				Goroutines:   lastGoroutines,
				MemAlloc:     lastMemAlloc,
			}
			if info.TotalKnown {
				if total, err := timebase.FramesToDuration(info.TotalFrames, rate); err == nil {
					msg.Duration = &total
				}
			}
			prog.Send(msg)
		}
	}
}
