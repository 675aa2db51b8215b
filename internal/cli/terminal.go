// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsTTY reports whether a person can type into stdin.
func IsTTY() bool {
	return isTerminal(os.Stdin)
}

// IsStdoutTTY reports whether output is shown on a terminal rather than
// piped or redirected.
func IsStdoutTTY() bool {
	return isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// CanRunTUI reports whether the full-screen UI can take over the terminal.
func CanRunTUI() bool {
	return IsTTY() && IsStdoutTTY()
}

// =============================================================================
// WIDTH
// =============================================================================

const (
	// DefaultTerminalWidth is used when output is not a terminal.
	DefaultTerminalWidth = 80

	// MinTerminalWidth keeps source excerpts readable on narrow panes.
	MinTerminalWidth = 40
)

// GetTerminalWidth returns the stdout width clamped to MinTerminalWidth.
func GetTerminalWidth() int {
	cols, _, err := term.GetSize(int(os.Stdout.Fd()))
	switch {
	case err != nil || cols <= 0:
		return DefaultTerminalWidth
	case cols < MinTerminalWidth:
		return MinTerminalWidth
	default:
		return cols
	}
}

// =============================================================================
// COLOR
// =============================================================================

var (
	useColor     bool
	useColorOnce sync.Once
)

// ColorsEnabled decides once per process whether to style output.
// NO_COLOR (https://no-color.org/) wins over FORCE_COLOR; without either,
// color follows IsStdoutTTY.
func ColorsEnabled() bool {
	useColorOnce.Do(func() {
		if os.Getenv("NO_COLOR") != "" {
			return
		}
		useColor = os.Getenv("FORCE_COLOR") != "" || IsStdoutTTY()
	})
	return useColor
}

// GetColorProfile returns Ascii when color is off.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}
