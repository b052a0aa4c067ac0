package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// These variables can be set at build time via ldflags:
//
//	go build -ldflags="-X github.com/muurk/wifictl/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/wifictl/internal/version.Commit=abc123 \
//	                   -X github.com/muurk/wifictl/internal/version.Date=2026-01-02"
//
// Unset values are filled from the module and VCS build info, then fall
// back to "dev" and "unknown".
var (
	// Version is the semantic version of the application
	Version = ""
	// Commit is the git commit hash
	Commit = ""
	// Date is the build or commit date
	Date = ""
)

func init() {
	if Version == "" || Commit == "" || Date == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			fromBuildInfo(info)
		}
	}

	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
	if Date == "" {
		Date = "unknown"
	}
}

// fromBuildInfo fills the unset variables from Go's build info. A module
// version is only present for `go install module@version` builds; local
// builds carry VCS settings instead.
func fromBuildInfo(info *debug.BuildInfo) {
	if Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	var revision, modified, vcsTime string
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value
		case "vcs.time":
			vcsTime = setting.Value
		}
	}

	if Commit == "" && revision != "" {
		Commit = revision
		if len(Commit) > 7 {
			Commit = Commit[:7]
		}
		if modified == "true" {
			Commit += "-dirty"
		}
	}

	if vcsTime != "" {
		if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
			if Date == "" {
				Date = t.UTC().Format("2006-01-02")
			}
			if Version == "" {
				Version = "dev-" + t.UTC().Format("20060102")
			}
		}
	}
}

// Full returns the full version string including commit and date
func Full() string {
	return fmt.Sprintf("%s (commit: %s, built: %s, %s)", Version, Commit, Date, runtime.Version())
}
