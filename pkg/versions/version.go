// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

// Package versions provides build version information for the CLI and the
// registry daemon.
package versions

import (
	"fmt"
	"runtime"
	"time"
)

const unknownStr = "unknown"

// These are set at build time via ldflags.
var (
	// Version is the current version of skillhub.
	Version = "dev"
	// Commit is the git commit hash of the build.
	Commit = unknownStr
	// BuildDate is the date the binary was built.
	BuildDate = unknownStr
)

// VersionInfo represents the version information of the binary.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersionInfo returns the version information of the running binary.
func GetVersionInfo() VersionInfo {
	version := Version
	if version == "dev" {
		if Commit != unknownStr {
			commit := Commit
			if len(commit) > 8 {
				commit = commit[:8]
			}
			version = "build-" + commit
		} else {
			version = "build-" + unknownStr
		}
	}

	buildDate := BuildDate
	if parsed, err := time.Parse(time.RFC3339, buildDate); err == nil {
		buildDate = parsed.UTC().Format("2006-01-02 15:04:05 UTC")
	}

	return VersionInfo{
		Version:   version,
		Commit:    Commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
