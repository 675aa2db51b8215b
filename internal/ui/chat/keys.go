// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/charmbracelet/bubbles/key"

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface.
type KeyMap struct {
	Submit        key.Binding
	Cancel        key.Binding
	Quit          key.Binding
	PageUp        key.Binding
	PageDown      key.Binding
	Copy          key.Binding
	DismissBanner key.Binding
	Help          key.Binding
	QuickActions  []key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "stop answer"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "quit"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copy answer"),
		),
		DismissBanner: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("C-b", "dismiss banner"),
		),
		Help: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("C-g", "help"),
		),
		QuickActions: []key.Binding{
			key.NewBinding(key.WithKeys("f1"), key.WithHelp("F1", "quick action 1")),
			key.NewBinding(key.WithKeys("f2"), key.WithHelp("F2", "quick action 2")),
			key.NewBinding(key.WithKeys("f3"), key.WithHelp("F3", "quick action 3")),
		},
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel, k.Copy, k.Help, k.Quit}
}

// FullHelp returns every binding, grouped.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Cancel, k.Quit},
		{k.PageUp, k.PageDown},
		{k.Copy, k.DismissBanner, k.Help},
		k.QuickActions,
	}
}
