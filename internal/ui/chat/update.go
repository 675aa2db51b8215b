// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/studymate/internal/errs"
	"github.com/jeranaias/studymate/internal/prompts"
	"github.com/jeranaias/studymate/internal/ui/components"
	"github.com/jeranaias/studymate/internal/ui/styles"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 4
		m.help.Width = msg.Width
		m.rebuildRenderer()
		m.ready = true
		m.refresh(true)
		return m, nil

	case SessionMsg:
		wasBusy := m.busy()
		m.view = msg.View
		m.refresh(false)
		if !wasBusy && m.busy() {
			return m, m.spinner.Tick
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case submitDoneMsg:
		m.status = submitStatus(msg.err)
		m.refresh(false)
		return m, nil

	case attachDoneMsg:
		if msg.err != nil {
			m.status = styles.RenderError("Upload failed: " + errorText(msg.err))
			if tip := components.SmartErrorFromError("Upload failed", msg.err).FirstSuggestion(); tip != "" {
				m.status += "  " + m.theme.Muted.Render(tip)
			}
		} else {
			m.status = styles.RenderSuccess("Attached " + msg.filename)
		}
		m.refresh(false)
		return m, nil

	case detachDoneMsg:
		if msg.err != nil {
			m.status = styles.RenderWarning(errorText(msg.err))
		} else {
			m.status = styles.RenderInfo("Document removed. Back to general chat.")
		}
		m.refresh(false)
		return m, nil

	case copyDoneMsg:
		if msg.err != nil {
			m.status = styles.RenderError("Clipboard unavailable: " + msg.err.Error())
		} else {
			m.status = styles.RenderSuccess("Copied last answer")
		}
		m.refresh(false)
		return m, nil

	case statusMsg:
		m.status = string(msg)
		m.refresh(false)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		// Cancel only flips the turn context; it does not notify.
		m.session.Cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.showHelp {
			m.showHelp = false
			m.refresh(false)
			return m, nil
		}
		if m.view.Turn.Active() {
			m.session.Cancel()
			m.status = styles.RenderInfo("Stopping answer...")
			m.refresh(false)
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m, m.copyLastAnswer()

	case key.Matches(msg, m.keys.DismissBanner):
		return m, m.dismissBanner()

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.refresh(false)
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submitInput()
	}

	for i, binding := range m.keys.QuickActions {
		if key.Matches(msg, binding) {
			return m.runQuickAction(i)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// ACTIONS
// =============================================================================

func (m Model) submitInput() (tea.Model, tea.Cmd) {
	raw := m.input.Value()
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return m, nil
	}

	if strings.HasPrefix(trimmed, "/") {
		m.input.Reset()
		return m.runCommand(trimmed)
	}

	if !m.view.InputEnabled() {
		m.status = styles.RenderWarning("Wait for the current answer, or press Esc to stop it.")
		m.refresh(false)
		return m, nil
	}

	m.input.Reset()
	m.status = ""
	return m, m.submit(raw)
}

func (m Model) runQuickAction(i int) (tea.Model, tea.Cmd) {
	actions := prompts.QuickActions()
	if !m.opts.ShowQuickActions || !m.view.ShowQuickActions || i >= len(actions) {
		return m, nil
	}
	return m, m.submit(actions[i].Prompt)
}

// submit runs the turn off the update loop. The controller's notifications
// drive the repaint; the returned message only carries the final error.
func (m Model) submit(text string) tea.Cmd {
	ctx, s := m.ctx, m.session
	return tea.Batch(
		func() tea.Msg {
			return submitDoneMsg{err: s.Submit(ctx, text)}
		},
		m.spinner.Tick,
	)
}

func (m Model) dismissBanner() tea.Cmd {
	if m.view.Banner == nil {
		return nil
	}
	s := m.session
	return func() tea.Msg {
		s.DismissBanner()
		return nil
	}
}

func (m Model) copyLastAnswer() tea.Cmd {
	last, ok := m.view.LastAssistant()
	if !ok || last.IsInFlight() || strings.TrimSpace(last.Text) == "" {
		return func() tea.Msg { return statusMsg(styles.RenderWarning("Nothing to copy yet")) }
	}
	write, text := m.writeClipboard, last.Text
	return func() tea.Msg {
		return copyDoneMsg{err: write(text)}
	}
}

// submitStatus maps a turn's result to the status line. Only local
// rejections show here: failed and stopped answers already appear in the
// conversation and configuration failures in the banner.
func submitStatus(err error) string {
	if errs.IsValidation(err) {
		return styles.RenderWarning(errorText(err))
	}
	return ""
}

func errorText(err error) string {
	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var te *errs.TransportError
	if errors.As(err, &te) && te.Detail != "" {
		return te.Detail
	}
	return err.Error()
}

// =============================================================================
// LAYOUT
// =============================================================================

// refresh sizes the viewport to the space left by the chrome and reloads
// its content. The view follows new output only when it was at the bottom.
func (m *Model) refresh(forceBottom bool) {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom() || forceBottom

	chrome := lipgloss.Height(m.renderHeader()) + lipgloss.Height(m.renderFooter())
	if banner := m.renderBanner(); banner != "" {
		chrome += lipgloss.Height(banner)
	}
	height := m.height - chrome
	if height < 3 {
		height = 3
	}
	m.viewport.Width = m.width
	m.viewport.Height = height
	m.viewport.SetContent(m.renderConversation())

	if atBottom {
		m.viewport.GotoBottom()
	}
}
