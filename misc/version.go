// Package misc keeps build information.
package misc

import (
	"runtime/debug"
)

// set by linker: -X mobiparse/misc.version=... -X mobiparse/misc.gitHash=...
var (
	version = "dev"
	gitHash = ""
)

func GetVersion() string {
	return version
}

// GetGitHash returns commit program was built from, falling back to what
// go toolchain stamped into the binary.
func GetGitHash() string {
	if len(gitHash) > 0 {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
