// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// Header and banners
	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	Banner      lipgloss.Style
	BannerTitle lipgloss.Style
	Badge       lipgloss.Style
	BadgeBusy   lipgloss.Style
	BadgeError  lipgloss.Style

	// Messages
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	ErroredText    lipgloss.Style
	CitationMarker lipgloss.Style
	SourceLine     lipgloss.Style

	// Input and status
	InputPrompt  lipgloss.Style
	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	Spinner      lipgloss.Style
	QuickAction  lipgloss.Style
	Muted        lipgloss.Style
}

// NewTheme builds a theme for the named mode: "dark", "light" or "auto".
// Auto asks the terminal for its background.
func NewTheme(mode string) *Theme {
	isDark := true
	switch strings.ToLower(mode) {
	case "light":
		isDark = false
	case "auto", "":
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// GlamourStyle names the markdown style that matches the theme.
func (t *Theme) GlamourStyle() string {
	if t.ColorProfile == termenv.Ascii {
		return "notty"
	}
	if t.IsDark {
		return "dark"
	}
	return "light"
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderBrand = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.Banner = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Amber).
		Foreground(TextPrimary).
		Padding(0, 1)

	t.BannerTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Amber)

	t.Badge = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Emerald).
		Padding(0, 1)

	t.BadgeBusy = t.Badge.Background(Amber)
	t.BadgeError = t.Badge.Background(Rose)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.ErroredText = lipgloss.NewStyle().Foreground(Rose)
	t.CitationMarker = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.SourceLine = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)

	t.InputPrompt = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim)
	t.ShortcutKey = lipgloss.NewStyle().Bold(true).Foreground(TextPrimary)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)
	t.Spinner = lipgloss.NewStyle().Foreground(Purple)
	t.QuickAction = lipgloss.NewStyle().
		Foreground(Cyan).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)
}
