// Package version carries build metadata injected at link time via
// -ldflags "-X github.com/banshee-data/neurovol/internal/version.Version=...".
package version

import "fmt"

var (
	// Version is the current release version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns a single-line version description.
func String() string {
	return fmt.Sprintf("%s (%s, built %s)", Version, GitSHA, BuildTime)
}
