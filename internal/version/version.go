// Package version reports the daemon build.
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

// Version and Commit are normally set by the release build:
//
//	go build -ldflags="-X github.com/bilalemiroglu/RSS-Vakit-ESP/internal/version.Version=v1.2.3 \
//	                   -X github.com/bilalemiroglu/RSS-Vakit-ESP/internal/version.Commit=abc123"
//
// Development builds fall back to the VCS stamp, then to "dev".
var (
	Version = ""
	Commit  = ""
)

// product names the daemon in version output and user agents.
const product = "vakitd"

func init() {
	if Version == "" || Commit == "" {
		Version, Commit = fromBuildInfo(Version, Commit)
	}
	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromBuildInfo fills whichever of version and commit is empty from the VCS
// settings the go tool embeds.
func fromBuildInfo(version, commit string) (string, string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version, commit
	}
	return fromSettings(version, commit, info.Settings)
}

func fromSettings(version, commit string, settings []debug.BuildSetting) (string, string) {
	vcs := make(map[string]string, len(settings))
	for _, s := range settings {
		vcs[s.Key] = s.Value
	}

	if rev := vcs["vcs.revision"]; commit == "" && rev != "" {
		commit = rev
		if len(commit) > 7 {
			commit = commit[:7]
		}
		if vcs["vcs.modified"] == "true" {
			commit += "-dirty"
		}
	}
	if version == "" {
		if t, err := time.Parse(time.RFC3339, vcs["vcs.time"]); err == nil {
			version = "dev-" + t.Format("20060102")
		}
	}
	return version, commit
}

// Full returns "vakitd <version> (commit: <commit>)".
func Full() string {
	return fmt.Sprintf("%s %s (commit: %s)", product, Version, Commit)
}

// UserAgent identifies the daemon to feed servers.
func UserAgent() string {
	return product + "/" + Version
}
