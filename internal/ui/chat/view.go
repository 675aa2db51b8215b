// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/studymate/internal/attachment"
	"github.com/jeranaias/studymate/internal/citation"
	"github.com/jeranaias/studymate/internal/model"
	"github.com/jeranaias/studymate/internal/prompts"
	"github.com/jeranaias/studymate/internal/session"
	"github.com/jeranaias/studymate/internal/ui/components"
	"github.com/jeranaias/studymate/internal/util"
)

// maxExcerpt bounds each source line under an answer.
const maxExcerpt = 90

// =============================================================================
// VIEW
// =============================================================================

// View renders the whole screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	parts := []string{m.renderHeader()}
	if banner := m.renderBanner(); banner != "" {
		parts = append(parts, banner)
	}
	parts = append(parts, m.viewport.View(), m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// =============================================================================
// HEADER AND BANNER
// =============================================================================

func (m Model) renderHeader() string {
	left := m.theme.HeaderBrand.Render("studymate")
	if m.opts.Title != "" {
		left += m.theme.Muted.Render("  " + m.opts.Title)
	}

	right := m.renderBadge()
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// renderBadge shows what the next question will be answered from.
func (m Model) renderBadge() string {
	att := m.view.Attachment
	nameWidth := m.width / 3
	if nameWidth < 12 {
		nameWidth = 12
	}

	switch att.State {
	case attachment.StateAttached:
		label := "Answering from: " + util.TruncateWidth(att.Filename, nameWidth)
		if att.PageCount > 0 {
			label += fmt.Sprintf(" (%d pages)", att.PageCount)
		}
		return m.theme.Badge.Render(label)
	case attachment.StateUploading:
		return m.theme.BadgeBusy.Render(m.spinner.View() + " Uploading " + util.TruncateWidth(att.Pending, nameWidth))
	case attachment.StateError:
		return m.theme.BadgeError.Render("Upload failed: " + util.TruncateWidth(att.ErrorDetail, nameWidth))
	}
	return m.theme.Muted.Render("General chat")
}

func (m Model) renderBanner() string {
	b := m.view.Banner
	if b == nil {
		return ""
	}
	width := m.width - 2
	if width < 20 {
		width = 20
	}
	body := m.theme.BannerTitle.Render("Configuration needed: ") + b.Message
	if b.Remedy != "" {
		body += "\n" + b.Remedy
	}
	body += "\n" + m.theme.Muted.Render("Ctrl+B to dismiss")
	return m.theme.Banner.Width(width).Render(body)
}

// =============================================================================
// CONVERSATION
// =============================================================================

func (m Model) renderConversation() string {
	var b strings.Builder
	for i, msg := range m.view.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	if m.showHelp {
		b.WriteString("\n")
		b.WriteString(m.renderHelp())
	}
	return b.String()
}

func (m Model) renderMessage(msg model.Message) string {
	bodyWidth := m.width - 2
	if bodyWidth < 10 {
		bodyWidth = 10
	}
	body := lipgloss.NewStyle().Width(bodyWidth).PaddingLeft(2)

	if msg.Role == model.RoleUser {
		return m.theme.UserLabel.Render(msg.Role.DisplayName()) + "\n" + body.Render(msg.Text)
	}

	label := m.theme.AssistantLabel.Render(msg.Role.DisplayName())
	switch msg.Status {
	case model.StatusInFlight:
		if msg.Text == "" {
			return label + "\n" + body.Render(m.spinner.View()+" Thinking...")
		}
		return label + "\n" + body.Render(msg.Text+" ▍")
	case model.StatusErrored:
		out := label + "\n" + m.theme.ErroredText.Width(bodyWidth).PaddingLeft(2).Render(msg.Text)
		if tip := components.SmartError("Answer failed", msg.Text).FirstSuggestion(); tip != "" {
			out += "\n" + m.theme.Muted.Width(bodyWidth).PaddingLeft(2).Render("Tip: "+tip)
		}
		return out
	}
	return label + "\n" + m.renderAnswer(msg)
}

// renderAnswer formats a finished answer: inline page markers are
// highlighted and the backend's sources are listed underneath.
func (m Model) renderAnswer(msg model.Message) string {
	if cached, ok := m.rendered[msg.ID]; ok {
		return cached
	}

	plan := citation.Extract(msg.Text, msg.Citations)

	var out string
	if m.renderer != nil {
		md := plan.Render(func(s citation.Segment) string {
			return fmt.Sprintf("**[p. %d]**", s.Locator)
		})
		rendered, err := m.renderer.Render(md)
		if err == nil {
			out = strings.TrimRight(rendered, "\n")
		}
	}
	if out == "" {
		text := plan.Render(func(s citation.Segment) string {
			return m.theme.CitationMarker.Render(fmt.Sprintf("[p. %d]", s.Locator))
		})
		out = lipgloss.NewStyle().Width(m.width - 2).PaddingLeft(2).Render(text)
	}

	if len(plan.Sources) > 0 {
		lines := []string{m.theme.Muted.Render("  Sources:")}
		for _, src := range plan.Sources {
			lines = append(lines, m.theme.SourceLine.Render("   - "+citation.SourceLine(src, maxExcerpt)))
		}
		out += "\n" + strings.Join(lines, "\n")
	}

	// The map is shared by copies of the model; answers never change once
	// complete, so a stale entry cannot occur.
	if m.rendered != nil {
		m.rendered[msg.ID] = out
	}
	return out
}

func (m Model) renderHelp() string {
	var lines []string
	lines = append(lines, m.theme.AssistantLabel.Render("Keys"))
	for _, group := range m.keys.FullHelp() {
		for _, k := range group {
			h := k.Help()
			lines = append(lines, "  "+m.theme.ShortcutKey.Render(util.PadRight(h.Key, 8))+m.theme.ShortcutDesc.Render(h.Desc))
		}
	}
	lines = append(lines, "", m.theme.AssistantLabel.Render("Commands"))
	for _, c := range [][2]string{
		{"/attach <file.pdf>", "upload a PDF and answer from it"},
		{"/detach", "remove the document and start over"},
		{"/copy", "copy the last answer"},
		{"/dismiss", "hide the configuration banner"},
		{"/quit", "exit"},
	} {
		lines = append(lines, "  "+m.theme.ShortcutKey.Render(util.PadRight(c[0], 20))+m.theme.ShortcutDesc.Render(c[1]))
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// FOOTER
// =============================================================================

func (m Model) renderFooter() string {
	var rows []string

	if m.opts.ShowQuickActions && m.view.ShowQuickActions {
		var buttons []string
		for i, qa := range prompts.QuickActions() {
			buttons = append(buttons, m.theme.QuickAction.Render(fmt.Sprintf("F%d %s", i+1, qa.Label)))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, buttons...))
	}

	if m.view.Turn.Active() {
		rows = append(rows, m.spinner.View()+" "+m.theme.Muted.Render(turnLabel(m.view.Turn)+"  Esc to stop"))
	}

	rows = append(rows, m.input.View(), m.renderStatusBar())
	return strings.Join(rows, "\n")
}

func (m Model) renderStatusBar() string {
	text := m.status
	if text == "" {
		text = m.help.ShortHelpView(m.keys.ShortHelp())
	}
	if lipgloss.Width(text) > m.width {
		text = util.TruncateWidth(util.OneLine(text), m.width)
	}
	return m.theme.StatusBar.Width(m.width).Render(text)
}

func turnLabel(t session.TurnState) string {
	switch t {
	case session.TurnAwaitingResponse:
		return "Thinking..."
	case session.TurnStreaming:
		return "Answering..."
	}
	return ""
}
