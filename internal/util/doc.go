// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the CLI and the terminal UI:
// crash-safe file writes and display-width aware truncation.
//
//	err := util.AtomicWriteFileWithDir(path, data, 0600, 0700)
//	label := util.TruncateWidth(filename, 24)
package util
