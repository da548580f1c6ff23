// Package version reports meetprep build information.
package version

import (
	"fmt"
	"runtime"
)

// Version is set at build time with
// -ldflags "-X github.com/Aman-CERP/meetprep/pkg/version.Version=v1.2.3".
var Version = "dev"

// Build metadata, also set via ldflags.
var (
	Commit = "unknown"
	Date   = "unknown"
)

// BuildInfo is version information for JSON output.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build information of the running binary.
func Get() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String formats the build information on one line.
func (b BuildInfo) String() string {
	return fmt.Sprintf("meetprep %s (commit: %s, built: %s, %s, %s)",
		b.Version, b.Commit, b.Date, b.GoVersion, b.Platform)
}
