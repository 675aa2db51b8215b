// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/studymate/internal/attachment"
	"github.com/jeranaias/studymate/internal/transport"
	"github.com/jeranaias/studymate/internal/ui/styles"
	"github.com/jeranaias/studymate/internal/util"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// parseCommand splits "/attach my notes.pdf" into ("attach", "my notes.pdf").
func parseCommand(input string) (name, arg string) {
	input = strings.TrimPrefix(strings.TrimSpace(input), "/")
	name, arg, _ = strings.Cut(input, " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}

func (m Model) runCommand(input string) (tea.Model, tea.Cmd) {
	name, arg := parseCommand(input)

	switch name {
	case "attach", "upload":
		return m, m.attach(arg)
	case "detach", "remove":
		return m, m.detach()
	case "copy":
		return m, m.copyLastAnswer()
	case "dismiss":
		return m, m.dismissBanner()
	case "help", "h", "?":
		m.showHelp = true
		m.refresh(false)
		return m, nil
	case "quit", "q", "exit":
		m.session.Cancel()
		return m, tea.Quit
	}

	m.status = styles.RenderWarning(fmt.Sprintf("Unknown command /%s. Try /help.", name))
	m.refresh(false)
	return m, nil
}

func (m Model) attach(path string) tea.Cmd {
	if path == "" {
		return statusCmd(styles.RenderWarning("Usage: /attach <file.pdf>"))
	}
	if m.view.Attachment.State == attachment.StateUploading {
		return statusCmd(styles.RenderWarning("An upload is already in progress"))
	}

	path = util.ExpandHome(path)
	if m.opts.MaxUploadBytes > 0 {
		if info, err := os.Stat(path); err == nil && info.Size() > m.opts.MaxUploadBytes {
			return statusCmd(styles.RenderError(fmt.Sprintf("%s is %s; the limit is %s",
				filepath.Base(path), transport.FormatSize(info.Size()), transport.FormatSize(m.opts.MaxUploadBytes))))
		}
	}

	ctx, s, open := m.ctx, m.session, m.openDocument
	return func() tea.Msg {
		doc, err := open(path)
		if err != nil {
			return attachDoneMsg{filename: filepath.Base(path), err: err}
		}
		return attachDoneMsg{filename: doc.Name, err: s.Attach(ctx, doc)}
	}
}

func (m Model) detach() tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		err := s.Detach(ctx)
		if errors.Is(err, attachment.ErrNothingToRemove) {
			err = errors.New("no document is attached")
		}
		return detachDoneMsg{err: err}
	}
}

func statusCmd(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg(text) }
}
