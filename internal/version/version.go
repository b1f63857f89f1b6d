// Package version holds build metadata, set at link time:
//
//	go build -ldflags "-X github.com/banshee-data/barpath/internal/version.Version=v0.3.0 \
//	  -X github.com/banshee-data/barpath/internal/version.GitSHA=$(git rev-parse --short HEAD)"
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build metadata for a program name.
func String(program string) string {
	return fmt.Sprintf("%s %s (git %s, built %s)", program, Version, GitSHA, BuildTime)
}
