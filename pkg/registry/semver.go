// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"sort"
	"strings"

	"golang.org/x/mod/semver"
)

// CompareVersions compares two skill version strings.
//
// The publish path only ever produces digits-only MAJOR.MINOR.PATCH versions,
// which compare numerically per component. If a pre-release or build
// identifier is encountered anyway, the comparison follows
// golang.org/x/mod/semver (pre-releases sort before their release; build
// metadata is ignored). Strings that are not semver at all compare
// lexicographically after any valid version.
func CompareVersions(a, b string) int {
	ca, cb := canonical(a), canonical(b)
	switch {
	case ca != "" && cb != "":
		return semver.Compare(ca, cb)
	case ca != "":
		return 1
	case cb != "":
		return -1
	default:
		return strings.Compare(a, b)
	}
}

// canonical normalizes a skill version to the "v"-prefixed form x/mod/semver
// expects, returning "" for invalid versions.
func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

// SortVersionsDescending sorts version strings latest-first in place.
func SortVersionsDescending(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		return CompareVersions(versions[i], versions[j]) > 0
	})
}

// SplitNameVersion splits a "name[@version]" reference. Version is empty when
// no pin is present.
func SplitNameVersion(ref string) (name, version string) {
	if idx := strings.Index(ref, "@"); idx >= 0 {
		return ref[:idx], ref[idx+1:]
	}
	return ref, ""
}
