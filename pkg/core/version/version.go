// ============================================================================
// bankprobe - bank API integration harness
// ============================================================================
//
// Package:     version
// Description: Build metadata, set via -ldflags at release time
// License:     MIT
// ============================================================================

package version

import (
	"fmt"
	"runtime"
)

// Build metadata; overridden with
// -ldflags "-X github.com/msto63/bankprobe/pkg/core/version.Version=..."
var (
	Version   = "0.1.0"
	GitCommit = "development"
	BuildDate = "unknown"
)

// Name is the program name used in user agents and banners
const Name = "bankprobe"

// Info describes the running binary
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Get returns the build information of the running binary
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String renders the multi-line banner printed by the version command
func (i Info) String() string {
	return fmt.Sprintf("%s v%s\n  Git Commit: %s\n  Build Date: %s\n  Go Version: %s\n  OS/Arch:    %s\n",
		Name, i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform)
}

// UserAgent is sent on every outgoing gRPC connection
func UserAgent() string {
	return Name + "/" + Version
}
