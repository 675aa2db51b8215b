// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"

	"github.com/jeranaias/studymate/internal/mistral"
	"github.com/jeranaias/studymate/internal/ui/chat"
	"github.com/jeranaias/studymate/internal/ui/styles"
)

// Execute starts the full-screen chat. Without a terminal on both stdin and
// stdout it falls back to line mode.
func (c *TUICmd) Execute(args []string) error {
	if len(args) > 0 {
		return usageErrorf("tui", "unexpected argument %q", args[0])
	}
	if !CanRunTUI() {
		return (&ChatCmd{app: c.app}).Execute(nil)
	}

	cfg, err := c.app.Config()
	if err != nil {
		return err
	}
	if err := c.app.initLogger(false); err != nil {
		return err
	}
	ctrl, err := c.app.Controller()
	if err != nil {
		return err
	}

	title := cfg.Mistral.Model
	if info, ok := mistral.GetModelInfo(cfg.Mistral.Model); ok {
		title = info.Name
	}

	return chat.Run(context.Background(), ctrl, chat.Options{
		Theme:            styles.NewTheme(cfg.UI.Theme),
		Title:            title,
		ShowQuickActions: cfg.UI.ShowQuickActions,
		MaxUploadBytes:   maxUploadBytes(cfg),
	})
}
