// Package version reports build information for campuscrawl.
//
// Release builds set the variables below with ldflags:
//
//	go build -ldflags "-X github.com/jmylchreest/campuscrawl/internal/version.Version=1.0.0 ..."
//
// Anything left unset falls back to the module and VCS data the Go
// toolchain embeds in the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
)

// Build-time variables set via ldflags
var (
	Version   = ""
	Commit    = ""
	Dirty     = ""
	BuildDate = ""
)

// Info contains structured version information
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	Dirty     bool   `json:"dirty" yaml:"dirty"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

var (
	once sync.Once
	info Info
)

// Get returns the current version information.
func Get() Info {
	once.Do(func() {
		info = resolve(Version, Commit, Dirty, BuildDate, readBuildInfo())
	})
	return info
}

func readBuildInfo() *debug.BuildInfo {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return bi
}

// resolve merges ldflags values with embedded build info. ldflags win.
func resolve(version, commit, dirty, date string, bi *debug.BuildInfo) Info {
	out := Info{
		Version:   version,
		Commit:    commit,
		Dirty:     dirty == "true",
		BuildDate: date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi != nil {
		if out.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			out.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if out.Commit == "" {
					out.Commit = s.Value
				}
			case "vcs.time":
				if out.BuildDate == "" {
					out.BuildDate = s.Value
				}
			case "vcs.modified":
				if dirty == "" {
					out.Dirty = s.Value == "true"
				}
			}
		}
	}

	if out.Version == "" {
		out.Version = "dev"
	}
	if out.Commit == "" {
		out.Commit = "unknown"
	}
	if len(out.Commit) > 12 {
		out.Commit = out.Commit[:12]
	}
	if out.BuildDate == "" {
		out.BuildDate = "unknown"
	}
	return out
}

// String returns a single-line version string
func String() string {
	i := Get()
	if i.Dirty {
		return i.Version + "-dirty"
	}
	return i.Version
}

// UserAgent returns the default crawler User-Agent for this build.
func UserAgent() string {
	return fmt.Sprintf("campuscrawl/%s (+https://github.com/jmylchreest/campuscrawl)", String())
}

// Full returns a multi-line version string with all details
func Full() string {
	i := Get()
	var sb strings.Builder
	fmt.Fprintf(&sb, "campuscrawl %s\n", String())
	fmt.Fprintf(&sb, "  Commit:     %s\n", i.Commit)
	fmt.Fprintf(&sb, "  Built:      %s\n", i.BuildDate)
	fmt.Fprintf(&sb, "  Go version: %s\n", i.GoVersion)
	fmt.Fprintf(&sb, "  OS/Arch:    %s", i.Platform)
	return sb.String()
}
