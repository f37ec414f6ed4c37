// Package buildinfo reports the version stamped into the episodic binary.
package buildinfo

import "runtime/debug"

// version is set at build time via
// -ldflags "-X github.com/offlinefirst/episodic/internal/buildinfo.version=v1.2.3".
var version = "dev"

// Version prefers the stamped version, then the module version embedded by
// the toolchain, then "dev".
func Version() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return version
}
