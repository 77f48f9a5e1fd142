// Package version carries build metadata injected with -ldflags -X.
package version

import "fmt"

var (
	// Version is the release tag.
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp (RFC 3339).
	BuildTime = "unknown"
)

// String renders the build metadata for `flightpath version`.
func String() string {
	sha := GitSHA
	if len(sha) > 12 {
		sha = sha[:12]
	}
	return fmt.Sprintf("flightpath %s (commit %s, built %s)", Version, sha, BuildTime)
}
