// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the studymate TUI.

Colors (colors.go) are Lip Gloss AdaptiveColors so the same palette reads on
light and dark terminals. Status helpers pair each color with an ASCII shape
for readers who cannot rely on color.

Theme (theme.go) collects the styles the chat view uses. The configured
ui.theme picks dark, light or auto detection through termenv, and
GlamourStyle returns the matching markdown style for answers.

	theme := styles.NewTheme(cfg.UI.Theme)
	fmt.Println(theme.Badge.Render("notes.pdf"))
*/
package styles
