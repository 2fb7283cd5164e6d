// Package buildinfo reports the vsixsync version from Go build metadata.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// Override is set with -ldflags "-X .../buildinfo.Override=v1.2.3" by release
// builds. When empty, the version is derived from debug.ReadBuildInfo.
var Override string

// Version returns the version string for the current build.
//
//   - the Override value when set
//   - the module version for `go install ...@vX.Y.Z` builds
//   - "dev-<hash>[-dirty]" for local builds with VCS stamping
//   - "dev" without VCS info, "unknown" without build info
func Version() string {
	if Override != "" {
		return Override
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	return fromBuildInfo(info)
}

func fromBuildInfo(info *debug.BuildInfo) string {
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}

	if revision == "" {
		return "dev"
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}

	v := fmt.Sprintf("dev-%s", revision)
	if dirty {
		v += "-dirty"
	}
	return v
}
