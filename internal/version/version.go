package version

import (
	"runtime/debug"
)

// Version is the release version. Overridden at link time for release
// builds.
var Version = "0.1.0"

// Resolve returns the full version string, appending a VCS suffix when
// the binary was built from a checkout whose HEAD is not a clean release
// state.
func Resolve() string {
	return resolveVersion(Version, debug.ReadBuildInfo)
}

func resolveVersion(base string, readInfo func() (*debug.BuildInfo, bool)) string {
	if base == "" {
		base = "0.0.0"
	}

	info, ok := readInfo()
	if !ok || info == nil {
		return base
	}

	var revision string
	dirty := false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}

	if revision == "" {
		return base
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}

	resolved := base + "+" + revision
	if dirty {
		resolved += ".dirty"
	}
	return resolved
}
