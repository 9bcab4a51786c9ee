// ABOUTME: enginectl commands and their argument handling
// ABOUTME: Each command maps onto one or more protocol requests
package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Resonate-Protocol/resonate-engine/pkg/protocol"
)

// session is what a command runs against
type session struct {
	ctx     context.Context
	client  *protocol.Client
	timeout time.Duration
}

// call runs f with the per-request timeout
func (s *session) call(f func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	return f(ctx)
}

type command struct {
	name    string
	args    string
	help    string
	minArgs int
	maxArgs int
	run     func(s *session, args []string) error
}

var commands = []command{
	{name: "play", args: "<path>", help: "Play a file on the server and wait until it finishes", minArgs: 1, maxArgs: 1, run: cmdPlay},
	{name: "stop", help: "Stop playback", run: cmdStop},
	{name: "devices", help: "List the server's audio devices", run: cmdDevices},
	{name: "time", help: "Show the playback position", run: cmdTime},
	{name: "seek", args: "<ms>", help: "Seek to a position in milliseconds", minArgs: 1, maxArgs: 1, run: cmdSeek},
	{name: "seek-frames", args: "<frames>", help: "Seek to a position in PCM frames", minArgs: 1, maxArgs: 1, run: cmdSeekFrames},
	{name: "volume", args: "[level]", help: "Show or set the linear volume (1.0 is unity)", maxArgs: 1, run: cmdVolume},
	{name: "info", help: "Show the server's output format and operations", run: cmdInfo},
	{name: "discover", help: "List servers advertised over mDNS"},
}

// lookupCommand finds name and checks its argument count
func lookupCommand(name string, args []string) (command, error) {
	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}
		if len(args) < cmd.minArgs || len(args) > cmd.maxArgs {
			return command{}, fmt.Errorf("usage: %s %s %s", appName, cmd.name, cmd.args)
		}
		return cmd, nil
	}
	return command{}, fmt.Errorf("unknown command %q\n\n%s", name, commandsUsage())
}

func commandsUsage() string {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(&b, "  %-22s %s\n", strings.TrimSpace(cmd.name+" "+cmd.args), cmd.help)
	}
	return b.String()
}

func cmdPlay(s *session, args []string) error {
	var res protocol.PlayAudioResult
	err := s.call(func(ctx context.Context) (err error) {
		res, err = s.client.PlayAudio(ctx, args[0])
		return err
	})
	if err != nil {
		return err
	}
	fmt.Println(res.Ack)

	for {
		select {
		case n, ok := <-s.client.Completed:
			if !ok {
				return fmt.Errorf("connection closed before %s finished", args[0])
			}
			if n.SessionID != res.SessionID {
				continue
			}
			if n.Error != "" {
				return protocol.ErrorPayload{Kind: n.ErrorKind, Message: n.Error}.Err()
			}
			fmt.Println(n.Status)
			return nil
		case <-s.ctx.Done():
			// Leave the server quiet when interrupted.
			stopCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			s.client.Stop(stopCtx)
			return s.ctx.Err()
		}
	}
}

func cmdStop(s *session, args []string) error {
	var stopped bool
	err := s.call(func(ctx context.Context) (err error) {
		stopped, err = s.client.Stop(ctx)
		return err
	})
	if err != nil {
		return err
	}
	if stopped {
		fmt.Println("stopped")
	} else {
		fmt.Println("nothing playing")
	}
	return nil
}

func cmdDevices(s *session, args []string) error {
	var res protocol.DevicesResult
	err := s.call(func(ctx context.Context) (err error) {
		res, err = s.client.GetDevices(ctx)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Print(formatDevices(res))
	return nil
}

func formatDevices(res protocol.DevicesResult) string {
	var b strings.Builder
	section := func(title string, devs []protocol.Device) {
		fmt.Fprintf(&b, "%s:\n", title)
		if len(devs) == 0 {
			b.WriteString("  (none)\n")
		}
		for _, d := range devs {
			mark := " "
			if d.IsDefault {
				mark = "*"
			}
			fmt.Fprintf(&b, " %s %s\n", mark, d.Name)
		}
	}
	section("Playback", res.Playback)
	section("Capture", res.Capture)
	return b.String()
}

func cmdTime(s *session, args []string) error {
	var frames, ms uint64
	err := s.call(func(ctx context.Context) (err error) {
		if frames, err = s.client.GetTimeInPcmFrames(ctx); err != nil {
			return err
		}
		ms, err = s.client.GetTimeInMilliseconds(ctx)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Printf("%d frames (%s)\n", frames, time.Duration(ms)*time.Millisecond)
	return nil
}

func cmdSeek(s *session, args []string) error {
	ms, err := parseUint(args[0], "milliseconds")
	if err != nil {
		return err
	}
	return s.call(func(ctx context.Context) error {
		return s.client.SetTimeInMilliseconds(ctx, ms)
	})
}

func cmdSeekFrames(s *session, args []string) error {
	frames, err := parseUint(args[0], "frames")
	if err != nil {
		return err
	}
	return s.call(func(ctx context.Context) error {
		return s.client.SetTimeInPcmFrames(ctx, frames)
	})
}

func cmdVolume(s *session, args []string) error {
	if len(args) == 1 {
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid volume %q: %v", args[0], err)
		}
		return s.call(func(ctx context.Context) error {
			return s.client.SetVolume(ctx, v)
		})
	}

	var v float64
	err := s.call(func(ctx context.Context) (err error) {
		v, err = s.client.GetVolume(ctx)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Printf("%.2f\n", v)
	return nil
}

func cmdInfo(s *session, args []string) error {
	hello := s.client.Hello()
	ops := append([]string(nil), hello.Operations...)
	sort.Strings(ops)
	fmt.Printf("Name:       %s\n", hello.Name)
	fmt.Printf("Server ID:  %s\n", hello.ServerID)
	if hello.DeviceInfo != nil {
		fmt.Printf("Software:   %s %s\n", hello.DeviceInfo.ProductName, hello.DeviceInfo.SoftwareVersion)
	}
	fmt.Printf("Format:     %d Hz, %d ch, %d-bit\n", hello.SampleRate, hello.Channels, hello.BitDepth)
	fmt.Printf("Backend:    %s\n", hello.Backend)
	fmt.Printf("Operations: %s\n", strings.Join(ops, ", "))
	return nil
}

func parseUint(s, what string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", what, s)
	}
	return n, nil
}
