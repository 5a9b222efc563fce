// Package misc keeps program identity: name, version and build information.
package misc

import (
	"runtime/debug"
	"sync"
)

const appName = "dbmd"

// version and gitHash could be set at link time with -X.
var (
	version = ""
	gitHash = ""
)

var buildInfo = sync.OnceValues(debug.ReadBuildInfo)

// GetAppName returns program name.
func GetAppName() string {
	return appName
}

// GetVersion returns program version.
func GetVersion() string {
	if len(version) > 0 {
		return version
	}
	if bi, ok := buildInfo(); ok && len(bi.Main.Version) > 0 && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return "dev"
}

// GetGitHash returns revision program was built from.
func GetGitHash() string {
	if len(gitHash) > 0 {
		return gitHash
	}
	bi, ok := buildInfo()
	if !ok {
		return "unknown"
	}
	var rev, modified string
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			if s.Value == "true" {
				modified = "-dirty"
			}
		}
	}
	if len(rev) == 0 {
		return "unknown"
	}
	return rev + modified
}
