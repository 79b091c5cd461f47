package version

import "fmt"

// Version is the release of mdbook-iced.
// Set via ldflags in release builds:
// go build -ldflags "-X github.com/iced-rs/mdbook-iced/internal/version.Version=v0.3.0".
var Version = "unknown"

// Build metadata, also set via ldflags.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by --version.
func String() string {
	return fmt.Sprintf("mdbook-iced %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
