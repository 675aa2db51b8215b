// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

// version is set by main from -ldflags. Defaults to "dev" for local builds.
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// SetVersion records build information. Empty values are ignored.
func SetVersion(v, commit, date string) {
	if v != "" {
		version = v
	}
	if commit != "" {
		gitCommit = commit
	}
	if date != "" {
		buildDate = date
	}
}

// Version returns the version line printed by --version.
func Version() string {
	return "studymate " + version + " (" + gitCommit + ", " + buildDate + ")"
}
