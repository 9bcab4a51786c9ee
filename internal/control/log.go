// ABOUTME: Package logger for the control server
// ABOUTME: Disabled until the application installs a subsystem logger
package control

import "github.com/decred/slog"

var log = slog.Disabled

// UseLogger sets the package logger
func UseLogger(logger slog.Logger) {
	log = logger
}
