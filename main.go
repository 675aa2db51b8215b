// studymate - A terminal study assistant for exam preparation.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"os"

	"github.com/jeranaias/studymate/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.SetVersion(Version, GitCommit, BuildDate)
}

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
