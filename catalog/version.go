// Package catalog decides plugin version compatibility and selects the
// highest compatible version of a plugin from a set of available versions.
// Catalog CRUD (add/remove/search) is out of scope; this package is the
// semver decision surface that a catalog store would call into.
package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is a parsed semantic version: major.minor.patch[-prerelease].
// Build metadata is not modeled; it plays no part in compatibility.
type Version struct {
	Major, Minor, Patch int
	PreRelease          string
}

// ParseVersion parses a "major.minor.patch" or "major.minor.patch-pre"
// string, with or without a leading "v".
func ParseVersion(s string) (Version, error) {
	canonicalInput := "v" + strings.TrimPrefix(s, "v")
	if !semver.IsValid(canonicalInput) {
		return Version{}, fmt.Errorf("catalog: invalid version %q", s)
	}
	core := strings.TrimPrefix(strings.TrimSuffix(semver.Canonical(canonicalInput), semver.Prerelease(canonicalInput)), "v")
	pre := strings.TrimPrefix(semver.Prerelease(canonicalInput), "-")

	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("catalog: invalid version %q", s)
	}
	major, err1 := strconv.Atoi(parts[0])
	minor, err2 := strconv.Atoi(parts[1])
	patch, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return Version{}, fmt.Errorf("catalog: invalid version %q", s)
	}
	return Version{Major: major, Minor: minor, Patch: patch, PreRelease: pre}, nil
}

// String renders the canonical "major.minor.patch[-prerelease]" form.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.PreRelease != "" {
		s += "-" + v.PreRelease
	}
	return s
}

// compareCore orders two versions by (major, minor, patch), ignoring
// pre-release. Used only to rank already-compatible candidates.
func compareCore(a, b Version) int {
	if a.Major != b.Major {
		return a.Major - b.Major
	}
	if a.Minor != b.Minor {
		return a.Minor - b.Minor
	}
	return a.Patch - b.Patch
}
