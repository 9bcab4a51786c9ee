// ABOUTME: Tests for the log backend
// ABOUTME: Covers level parsing, subsystem loggers and file output
package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/decred/slog"
)

func TestParseLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		def     slog.Level
		subsys  map[string]slog.Level
		wantErr bool
	}{
		{name: "empty", level: "", def: slog.LevelInfo},
		{name: "default only", level: "debug", def: slog.LevelDebug},
		{
			name:   "per subsystem",
			level:  "warn,DECD=trace, OUTP=error",
			def:    slog.LevelWarn,
			subsys: map[string]slog.Level{"DECD": slog.LevelTrace, "OUTP": slog.LevelError},
		},
		{name: "bad level", level: "loud", wantErr: true},
		{name: "bad pair", level: "a=b=c", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := New("", tt.level, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if b.defaultLogLevel != tt.def {
				t.Errorf("expected default %v, got %v", tt.def, b.defaultLogLevel)
			}
			for subsys, want := range tt.subsys {
				if got := b.Logger(subsys).Level(); got != want {
					t.Errorf("%s: expected %v, got %v", subsys, want, got)
				}
			}
		})
	}
}

func TestLoggerReuse(t *testing.T) {
	b, err := New("", "info", nil)
	if err != nil {
		t.Fatal(err)
	}
	if b.Logger(SubsysEngine) != b.Logger(SubsysEngine) {
		t.Error("expected the same logger for a subsystem")
	}
	b.Logger(SubsysDecode)
	subs := b.Subsystems()
	if len(subs) != 2 || subs[0] != SubsysDecode || subs[1] != SubsysEngine {
		t.Errorf("unexpected subsystems %v", subs)
	}
}

func TestSetLevel(t *testing.T) {
	b, err := New("", "info,OUTP=error", nil)
	if err != nil {
		t.Fatal(err)
	}
	eng := b.Logger(SubsysEngine)
	out := b.Logger(SubsysOutput)

	b.SetLevel(slog.LevelDebug)
	if eng.Level() != slog.LevelDebug {
		t.Errorf("expected engine logger at debug, got %v", eng.Level())
	}
	if out.Level() != slog.LevelError {
		t.Errorf("pinned subsystem level changed to %v", out.Level())
	}
	if b.Logger(SubsysControl).Level() != slog.LevelDebug {
		t.Error("new loggers should use the new default level")
	}
}

func TestWritesStdoutAndFile(t *testing.T) {
	var stdout bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "logs", "engine.log")

	b, err := New(logFile, "info", &stdout)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	log := b.Logger(SubsysMain)
	log.Infof("hello %d", 42)
	log.Debugf("hidden")
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if !strings.Contains(stdout.String(), "[INF] MAIN: hello 42") {
		t.Errorf("unexpected stdout %q", stdout.String())
	}
	if strings.Contains(stdout.String(), "hidden") {
		t.Error("debug line written at info level")
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "hello 42") {
		t.Errorf("unexpected log file contents %q", data)
	}
}
