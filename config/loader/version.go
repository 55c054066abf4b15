package loader

import (
	"strconv"
	"strings"
)

// Version is the running binary's version, set at build time via
// -ldflags (the same pattern hephbuild-heph's own version stamping
// uses). "0.0.0-dev" means an unreleased build, which never fails a
// min_version check.
var Version = "0.0.0-dev"

// versionAtLeast reports whether actual satisfies a "x.y.z" >= required
// comparison on the first three dot-separated numeric components,
// ignoring any -pre/+build suffix. No pack example imports a semver
// library at a reachable call site (blang/semver and coreos/go-semver
// only ever show up as moby-moby's unused indirect requirements), so
// config.minVersion's three-component comparison is handled directly.
func versionAtLeast(actual, required string) bool {
	a := parseVersionCore(actual)
	r := parseVersionCore(required)
	for i := 0; i < 3; i++ {
		if a[i] != r[i] {
			return a[i] > r[i]
		}
	}
	return true
}

func parseVersionCore(v string) [3]int {
	v, _, _ = strings.Cut(v, "-")
	v, _, _ = strings.Cut(v, "+")
	parts := strings.SplitN(v, ".", 3)

	var out [3]int
	for i := 0; i < 3 && i < len(parts); i++ {
		n, _ := strconv.Atoi(parts[i])
		out[i] = n
	}
	return out
}
