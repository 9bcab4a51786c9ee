// ABOUTME: Build identification for the engine binaries
// ABOUTME: Reported in the control handshake and by --version
package version

import "fmt"

const (
	// Product is the software name advertised to control clients
	Product = "Resonate Engine"
	// Manufacturer identifies the maintainers
	Manufacturer = "Resonate"
)

// Version may be overridden at link time with
// -ldflags "-X github.com/Resonate-Protocol/resonate-engine/internal/version.Version=x.y.z"
var Version = "0.1.0"

// String returns the product and version for banners
func String() string {
	return fmt.Sprintf("%s %s", Product, Version)
}
