// ABOUTME: Package logger for the decoders
// ABOUTME: Disabled until the application installs a subsystem logger
package decode

import "github.com/decred/slog"

var log slog.Logger = slog.Disabled

// UseLogger sets the package-level logger.
func UseLogger(logger slog.Logger) {
	log = logger
}
