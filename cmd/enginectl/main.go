// ABOUTME: Command line client for the engine control server
// ABOUTME: Finds a server, runs one command and prints the result
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/resonate-engine/internal/discovery"
	"github.com/Resonate-Protocol/resonate-engine/internal/logging"
	"github.com/Resonate-Protocol/resonate-engine/internal/version"
	"github.com/Resonate-Protocol/resonate-engine/pkg/protocol"
	"github.com/jessevdk/go-flags"
)

const appName = "enginectl"

type options struct {
	Server     string        `short:"s" long:"server" env:"ENGINECTL_SERVER" description:"Control URL such as ws://host:8937/control (discovered over mDNS when empty)"`
	Name       string        `long:"name" default:"enginectl" description:"Client name sent in the handshake"`
	Timeout    time.Duration `long:"timeout" default:"5s" description:"Timeout for each request"`
	Discover   time.Duration `long:"discover" default:"5s" description:"How long to browse for a server"`
	DebugLevel string        `short:"d" long:"debuglevel" default:"warn" description:"Log level"`

	ShowVersion bool `short:"V" long:"version" description:"Show version and exit"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

func run() error {
	var opts options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Usage = "[options] <command> [args]\n\n" + commandsUsage()
	args, err := parser.Parse()
	if err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			fmt.Println(err)
			return nil
		}
		return err
	}
	if opts.ShowVersion {
		fmt.Printf("%s (%s)\n", appName, version.String())
		return nil
	}
	if len(args) == 0 {
		return fmt.Errorf("no command given\n\n%s", commandsUsage())
	}

	cmd, err := lookupCommand(args[0], args[1:])
	if err != nil {
		return err
	}

	lb, err := logging.New("", opts.DebugLevel, os.Stderr)
	if err != nil {
		return err
	}
	defer lb.Close()
	discovery.UseLogger(lb.Logger(logging.SubsysDiscovery))
	protocol.UseLogger(lb.Logger(logging.SubsysProtocol))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cmd.name == "discover" {
		return listServers(ctx, opts.Discover)
	}

	url := opts.Server
	if url == "" {
		server, err := findServer(ctx, opts.Discover)
		if err != nil {
			return err
		}
		url = server.URL()
	}

	dialCtx, dialCancel := context.WithTimeout(ctx, opts.Timeout)
	c, err := protocol.Dial(dialCtx, protocol.Config{URL: url, Name: opts.Name})
	dialCancel()
	if err != nil {
		return err
	}
	defer c.Close()

	return cmd.run(&session{ctx: ctx, client: c, timeout: opts.Timeout}, args[1:])
}

// findServer returns the first engine server answering on mDNS
func findServer(ctx context.Context, wait time.Duration) (*discovery.ServerInfo, error) {
	disc := discovery.NewManager(discovery.Config{})
	disc.Browse()
	defer disc.Stop()

	select {
	case server := <-disc.Servers():
		return server, nil
	case <-time.After(wait):
		return nil, fmt.Errorf("no server found after %s; use --server", wait)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// listServers prints every server seen within wait
func listServers(ctx context.Context, wait time.Duration) error {
	disc := discovery.NewManager(discovery.Config{})
	disc.Browse()
	defer disc.Stop()

	seen := make(map[string]bool)
	timeout := time.After(wait)
	for {
		select {
		case server := <-disc.Servers():
			url := server.URL()
			if seen[url] {
				continue
			}
			seen[url] = true
			fmt.Printf("%s\t%s\t%s\n", server.Name, url, server.Version)
		case <-timeout:
			if len(seen) == 0 {
				fmt.Println("no servers found")
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
