// Package version reports the bridge build version.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/watering/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/watering/internal/version.Commit=abc123"
var (
	Version = ""
	Commit  = ""
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"goVersion"`
	Modified  bool   `json:"modified"`
}

// Get returns the version info, filling fields not set via ldflags from the
// module build info.
func Get() Info {
	info := Info{Version: Version, Commit: Commit, GoVersion: runtime.Version()}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fromBuildInfo(&info, bi)
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	return info
}

func fromBuildInfo(info *Info, bi *debug.BuildInfo) {
	if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
				if len(info.Commit) > 7 {
					info.Commit = info.Commit[:7]
				}
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
}

// String returns the version, marked when built from a modified tree.
func (i Info) String() string {
	if i.Modified {
		return i.Version + "-dirty"
	}
	return i.Version
}

// Full returns the version with commit and Go version.
func (i Info) Full() string {
	return fmt.Sprintf("%s (commit: %s, %s)", i.String(), i.Commit, i.GoVersion)
}
