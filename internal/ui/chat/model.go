// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/studymate/internal/attachment"
	"github.com/jeranaias/studymate/internal/session"
	"github.com/jeranaias/studymate/internal/transport"
	"github.com/jeranaias/studymate/internal/ui/styles"
)

// =============================================================================
// SESSION SEAM
// =============================================================================

// Session is the part of session.Controller the view drives.
type Session interface {
	View() session.View
	Subscribe(o session.Observer) func()
	Submit(ctx context.Context, text string) error
	Cancel() bool
	Attach(ctx context.Context, doc *transport.Document) error
	Detach(ctx context.Context) error
	DismissBanner()
}

// Options configures the chat view.
type Options struct {
	Theme *styles.Theme

	// Title is shown next to the brand, e.g. the model name.
	Title string

	// ShowQuickActions offers the canned questions on an empty conversation.
	ShowQuickActions bool

	// MaxUploadBytes rejects larger files before they are read into the
	// upload. Zero leaves the check to the document validator.
	MaxUploadBytes int64
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctx     context.Context
	session Session

	theme *styles.Theme
	keys  KeyMap
	opts  Options

	// Latest controller snapshot
	view session.View

	// Dimensions
	width  int
	height int
	ready  bool

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model

	// Markdown renderer, rebuilt on resize. Nil falls back to plain text.
	renderer *glamour.TermRenderer
	// rendered caches finished answers by message ID.
	rendered map[string]string

	status   string
	showHelp bool

	// Seams for tests
	openDocument   func(path string) (*transport.Document, error)
	writeClipboard func(text string) error
}

// New creates a chat model for s.
func New(ctx context.Context, s Session, opts Options) Model {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme("auto")
	}

	input := textinput.New()
	input.Placeholder = "Ask a question, or /attach notes.pdf"
	input.Prompt = opts.Theme.InputPrompt.Render("> ")
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = opts.Theme.Spinner

	return Model{
		ctx:            ctx,
		session:        s,
		theme:          opts.Theme,
		keys:           DefaultKeyMap(),
		opts:           opts,
		view:           s.View(),
		viewport:       viewport.New(0, 0),
		input:          input,
		spinner:        sp,
		help:           help.New(),
		rendered:       make(map[string]string),
		openDocument:   transport.OpenDocument,
		writeClipboard: clipboard.WriteAll,
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Run starts the full-screen program and blocks until the user quits.
// Controller notifications arrive from other goroutines and are forwarded
// with Program.Send, so Update never calls back into the controller
// synchronously.
func Run(ctx context.Context, s Session, opts Options) error {
	p := tea.NewProgram(
		New(ctx, s, opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	unsubscribe := s.Subscribe(session.ObserverFunc(func(v session.View) {
		p.Send(SessionMsg{View: v})
	}))
	defer unsubscribe()

	_, err := p.Run()
	s.Cancel()
	return err
}

// busy reports whether something worth animating is in progress.
func (m Model) busy() bool {
	return m.view.Turn.Active() || m.view.Attachment.State == attachment.StateUploading
}

func (m *Model) rebuildRenderer() {
	wrap := m.width - 4
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.theme.GlamourStyle()),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		r = nil
	}
	m.renderer = r
	m.rendered = make(map[string]string)
}
