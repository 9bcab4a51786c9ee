// ABOUTME: Entry point for the engine control server
// ABOUTME: Serves an engine over WebSocket with mDNS advertisement and metrics
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/resonate-engine/internal/config"
	"github.com/Resonate-Protocol/resonate-engine/internal/control"
	"github.com/Resonate-Protocol/resonate-engine/internal/discovery"
	"github.com/Resonate-Protocol/resonate-engine/internal/logging"
	"github.com/Resonate-Protocol/resonate-engine/internal/metrics"
	"github.com/Resonate-Protocol/resonate-engine/internal/version"
	"github.com/Resonate-Protocol/resonate-engine/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-engine/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-engine/pkg/engine"
	"github.com/Resonate-Protocol/resonate-engine/pkg/protocol"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, _, err := config.Load(os.Args[1:])
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

	lb, err := logging.New(cfg.LogFile, cfg.DebugLevel, os.Stdout)
	if err != nil {
		return err
	}
	defer lb.Close()
	decode.UseLogger(lb.Logger(logging.SubsysDecode))
	output.UseLogger(lb.Logger(logging.SubsysOutput))
	control.UseLogger(lb.Logger(logging.SubsysControl))
	discovery.UseLogger(lb.Logger(logging.SubsysDiscovery))
	protocol.UseLogger(lb.Logger(logging.SubsysProtocol))
	log := lb.Logger(logging.SubsysMain)

	serverName := cfg.Name
	if serverName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serverName = fmt.Sprintf("%s-resonate-engine", hostname)
	}

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
	if err := eng.SetVolume(cfg.Volume); err != nil {
		return err
	}

	var m *metrics.Metrics
	if !cfg.NoMetrics {
		m = metrics.New(eng)
	}
	srv := control.New(control.Config{
		Addr:    cfg.Listen,
		Path:    config.DefaultPath,
		Name:    serverName,
		Metrics: m,
	}, eng)

	log.Infof("Starting %s: %s on %s", version.String(), serverName, cfg.Listen)
	log.Infof("Press Ctrl-C to stop")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return srv.Run(gctx) })

	if !cfg.NoMDNS {
		port, err := listenPort(cfg.Listen)
		if err != nil {
			return err
		}
		mdns := discovery.NewManager(discovery.Config{
			ServiceName: serverName,
			Port:        port,
			Path:        config.DefaultPath,
			Version:     version.Version,
		})
		if err := mdns.Advertise(); err != nil {
			// Remote clients can still connect with an explicit address.
			log.Warnf("Failed to start mDNS advertisement: %v", err)
		} else {
			g.Go(func() error {
				<-gctx.Done()
				mdns.Stop()
				return nil
			})
		}
	}

	if m != nil {
		statLog := lb.Logger(logging.SubsysStats)
		g.Go(func() error { return metrics.RunReportStatsLoop(gctx, eng, statLog, time.Minute) })
	}

	err = g.Wait()
	if ctx.Err() != nil {
		log.Infof("Shutdown signal received")
		err = nil
	}
	log.Infof("Server stopped")
	return err
}

// listenPort extracts the port advertised over mDNS
func listenPort(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("%w: listen address %q: %v", engine.ErrConfiguration, addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return 0, fmt.Errorf("%w: listen address %q needs a numeric port", engine.ErrConfiguration, addr)
	}
	return port, nil
}
