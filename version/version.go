// Package version carries build metadata stamped into the binary at link
// time via -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version when built from a tag.
	Version = "dev"

	// CommitHash is the git commit the binary was built from.
	CommitHash = "dev"

	// BuildTime is when the binary was built.
	BuildTime = "unknown"
)

// Info is the full build description, JSON-friendly for `version --json`.
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get returns the build information of the running binary.
func Get() Info {
	return Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns a one-line human-readable version.
func (i Info) String() string {
	return fmt.Sprintf("weavesuite %s (commit %s, built %s)", i.Version, i.CommitHash, i.BuildTime)
}
