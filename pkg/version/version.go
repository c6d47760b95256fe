// Package version exposes build-time version information for commitflow binaries.
package version

import "runtime/debug"

// Version is the semantic version of the binary, injected via ldflags.
var Version = "dev"

// Commit is the VCS revision the binary was built from, injected via ldflags.
var Commit = "unknown"

// Date is the build timestamp, injected via ldflags.
var Date = "unknown"

// InitBinaryVersion fills Commit from embedded build info when ldflags did not
// set it. Keeps `go install` builds identifiable without a release pipeline.
func InitBinaryVersion() {
	if Commit != "unknown" {
		return
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			Commit = setting.Value

			return
		}
	}
}
