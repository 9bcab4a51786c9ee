// ABOUTME: Log backend shared by the engine binaries
// ABOUTME: Writes to stdout and a rotated file with per-subsystem levels
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// Subsystem tags used across the binaries
const (
	SubsysEngine    = "ENGN"
	SubsysDecode    = "DECD"
	SubsysOutput    = "OUTP"
	SubsysControl   = "CTRL"
	SubsysDiscovery = "MDNS"
	SubsysProtocol  = "PROT"
	SubsysMain      = "MAIN"
	SubsysStats     = "STAT"
)

// Backend fans log lines out to stdout and an optional rotated file
type Backend struct {
	mtx             sync.Mutex
	stdOut          io.Writer
	logRotator      *rotator.Rotator
	bknd            *slog.Backend
	defaultLogLevel slog.Level
	logLevels       map[string]slog.Level
	loggers         map[string]slog.Logger
}

// New creates a backend. debugLevel is either a single level or a comma
// separated list such as "info,DECD=debug". stdOut may be nil.
func New(logFile, debugLevel string, stdOut io.Writer) (*Backend, error) {
	var logRotator *rotator.Rotator
	if logFile != "" {
		logDir, _ := filepath.Split(logFile)
		if logDir != "" {
			if err := os.MkdirAll(logDir, 0o700); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %v", err)
			}
		}
		var err error
		logRotator, err = rotator.New(logFile, 1024, false, 10)
		if err != nil {
			return nil, fmt.Errorf("failed to create file rotator: %v", err)
		}
	}

	b := &Backend{
		stdOut:          stdOut,
		logRotator:      logRotator,
		defaultLogLevel: slog.LevelInfo,
		logLevels:       make(map[string]slog.Level),
		loggers:         make(map[string]slog.Logger),
	}
	b.bknd = slog.NewBackend(b)

	if err := b.parseLevels(debugLevel); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// parseLevels reads the debug level string into per-subsystem levels
func (b *Backend) parseLevels(debugLevel string) error {
	if debugLevel == "" {
		return nil
	}
	for _, v := range strings.Split(debugLevel, ",") {
		fields := strings.Split(strings.TrimSpace(v), "=")
		switch len(fields) {
		case 1:
			level, ok := slog.LevelFromString(fields[0])
			if !ok {
				return fmt.Errorf("unknown log level %q", fields[0])
			}
			b.defaultLogLevel = level
		case 2:
			level, ok := slog.LevelFromString(fields[1])
			if !ok {
				return fmt.Errorf("unknown log level %q for %s", fields[1], fields[0])
			}
			b.logLevels[fields[0]] = level
		default:
			return fmt.Errorf("unable to parse %q as subsys=level debuglevel string", v)
		}
	}
	return nil
}

func (b *Backend) Write(p []byte) (int, error) {
	if b.stdOut != nil {
		b.stdOut.Write(p)
	}
	if b.logRotator != nil {
		b.logRotator.Write(p)
	}
	return len(p), nil
}

// Logger returns the logger for subsys, creating it on first use
func (b *Backend) Logger(subsys string) slog.Logger {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if l, ok := b.loggers[subsys]; ok {
		return l
	}

	l := b.bknd.Logger(subsys)
	b.loggers[subsys] = l
	if level, ok := b.logLevels[subsys]; ok {
		l.SetLevel(level)
	} else {
		l.SetLevel(b.defaultLogLevel)
	}
	return l
}

// SetLevel changes the level of every logger created so far and of the
// ones created later
func (b *Backend) SetLevel(level slog.Level) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.defaultLogLevel = level
	for subsys, l := range b.loggers {
		if _, pinned := b.logLevels[subsys]; !pinned {
			l.SetLevel(level)
		}
	}
}

// Subsystems lists the subsystems that have a logger
func (b *Backend) Subsystems() []string {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	subs := make([]string, 0, len(b.loggers))
	for s := range b.loggers {
		subs = append(subs, s)
	}
	sort.Strings(subs)
	return subs
}

// Close flushes and closes the log file
func (b *Backend) Close() error {
	if b.logRotator != nil {
		return b.logRotator.Close()
	}
	return nil
}
