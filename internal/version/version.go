package version

import "fmt"

// Binary names, also used as logger names.
const (
	// Daemon is the lock daemon binary.
	Daemon = "lockd"
	// CLI is the peer command-line binary.
	CLI = "lockctl"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s", Version, Commit, BuildTime)
}

// For returns the version line printed by a binary.
func For(binary string) string {
	return fmt.Sprintf("%s %s", binary, Full())
}
