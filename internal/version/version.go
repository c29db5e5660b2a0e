// Package version exposes build metadata set at link time via ldflags.
package version

import (
	"fmt"
	"runtime"
	"strings"
)

const (
	// AppName identifies the binary in version output.
	AppName = "gitlab-mr-conflict-detector"
	// UnknownValue is substituted for any metadata field left unset at build time.
	UnknownValue = "unknown"
	// ShortCommitHashLength bounds how many characters of the commit hash are displayed.
	ShortCommitHashLength = 7
)

var (
	// Version is the semantic version of the build, set via -ldflags.
	Version = "dev"
	// Commit is the git commit hash of the build.
	Commit = UnknownValue
	// Date is the build timestamp.
	Date = UnknownValue
	// BuiltBy identifies the build system or user that produced the binary.
	BuiltBy = UnknownValue
	// BuildNumber is an optional CI build counter; "0" or "" is treated as absent.
	BuildNumber = ""
)

// BuildInfo is a snapshot of the package-level build variables.
type BuildInfo struct {
	Version   string
	Commit    string
	Date      string
	BuiltBy   string
	GoVersion string
	Platform  string
}

// Get returns the current build information.
func Get() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		BuiltBy:   BuiltBy,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// GetVersion returns the version string, appending the build number when set
// and non-zero.
func GetVersion() string {
	if BuildNumber != "" && BuildNumber != "0" {
		return fmt.Sprintf("%s (build %s)", Version, BuildNumber)
	}
	return Version
}

// shortCommit truncates a commit hash to ShortCommitHashLength characters.
func shortCommit(commit string) string {
	if len(commit) <= ShortCommitHashLength {
		return commit
	}
	return commit[:ShortCommitHashLength]
}

// GetFullVersionInfo renders a multi-line human-readable summary of Get().
func GetFullVersionInfo() string {
	bi := Get()
	date := strings.ReplaceAll(bi.Date, "_", " ")
	return fmt.Sprintf(
		"%s %s\nCommit: %s\nBuilt: %s by %s\nGo: %s\nPlatform: %s",
		AppName, GetVersion(), shortCommit(bi.Commit), date, bi.BuiltBy, bi.GoVersion, bi.Platform,
	)
}

// String renders bi in the same layout GetFullVersionInfo uses for the
// package-level build variables, but prints bi's fields as they are: the
// commit hash is not truncated, underscores in the date are kept, and no
// build number is appended.
func (bi *BuildInfo) String() string {
	return fmt.Sprintf(
		"%s %s\nCommit: %s\nBuilt: %s by %s\nGo: %s\nPlatform: %s",
		AppName, bi.Version, bi.Commit, bi.Date, bi.BuiltBy, bi.GoVersion, bi.Platform,
	)
}

// Short renders a one-line "<app> <version>" summary.
func (bi *BuildInfo) Short() string {
	return fmt.Sprintf("%s %s", AppName, bi.Version)
}
