// Package misc keeps build time information.
package misc

import "runtime/debug"

// Set with -ldflags "-X cssrebase/misc.version=... -X cssrebase/misc.gitHash=...".
var (
	version = ""
	gitHash = ""
)

const appName = "cssrebase"

// GetAppName returns program name.
func GetAppName() string {
	return appName
}

// GetVersion returns program version.
func GetVersion() string {
	if version != "" {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		return bi.Main.Version
	}
	return "dev"
}

// GetGitHash returns vcs revision program was built from.
func GetGitHash() string {
	if gitHash != "" {
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
