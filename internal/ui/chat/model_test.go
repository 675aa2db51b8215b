// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/studymate/internal/attachment"
	"github.com/jeranaias/studymate/internal/errs"
	"github.com/jeranaias/studymate/internal/model"
	"github.com/jeranaias/studymate/internal/prompts"
	"github.com/jeranaias/studymate/internal/session"
	"github.com/jeranaias/studymate/internal/transport"
	"github.com/jeranaias/studymate/internal/ui/styles"
)

// =============================================================================
// FAKE SESSION
// =============================================================================

type fakeSession struct {
	mu        sync.Mutex
	view      session.View
	submitted []string
	attached  []string
	detached  int
	cancelled int
	dismissed int
	submitErr error
	detachErr error
}

func newFakeSession() *fakeSession {
	return &fakeSession{view: session.View{
		Messages:         []model.Message{model.NewAssistantMessage(prompts.Greeting)},
		ShowQuickActions: true,
	}}
}

func (f *fakeSession) View() session.View { return f.view }

func (f *fakeSession) Subscribe(session.Observer) func() { return func() {} }

func (f *fakeSession) DismissBanner() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dismissed++
}

func (f *fakeSession) Detach(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detached++
	return f.detachErr
}

func (f *fakeSession) Cancel() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled++
	return true
}

func (f *fakeSession) Submit(_ context.Context, t string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, t)
	return f.submitErr
}

func (f *fakeSession) Attach(_ context.Context, doc *transport.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attached = append(f.attached, doc.Name)
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func newTestModel(t *testing.T, s *fakeSession) Model {
	t.Helper()
	m := New(context.Background(), s, Options{
		Theme:            styles.NewTheme("dark"),
		Title:            "mistral-large-latest",
		ShowQuickActions: true,
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

// drain runs cmd and any batched commands, returning the messages produced.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func typeText(m Model, text string) Model {
	m.input.SetValue(text)
	return m
}

// =============================================================================
// TESTS
// =============================================================================

func TestModel_ShowsGreeting(t *testing.T) {
	m := newTestModel(t, newFakeSession())
	m.renderer = nil
	m.rendered = map[string]string{}
	out := m.View()

	assert.Contains(t, out, "studymate")
	assert.Contains(t, out, "General chat")
	assert.Contains(t, m.renderConversation(), "study assistant")
	assert.Contains(t, out, "Explain a concept")
}

func TestModel_SubmitSendsRawText(t *testing.T) {
	s := newFakeSession()
	m := typeText(newTestModel(t, s), "What is entropy?  ")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())

	var done bool
	for _, msg := range drain(cmd) {
		if _, ok := msg.(submitDoneMsg); ok {
			done = true
		}
	}
	assert.True(t, done)
	assert.Equal(t, []string{"What is entropy?  "}, s.submitted)
}

func TestModel_SubmitWhileBusyIsRefused(t *testing.T) {
	s := newFakeSession()
	m := newTestModel(t, s)
	m, _ = update(t, m, SessionMsg{View: session.View{Turn: session.TurnStreaming}})

	m = typeText(m, "another question")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Empty(t, s.submitted)
	assert.Equal(t, "another question", m.input.Value(), "input is kept for later")
	assert.Contains(t, m.status, "Wait for the current answer")
}

func TestModel_BlankInputDoesNothing(t *testing.T) {
	s := newFakeSession()
	m := typeText(newTestModel(t, s), "   ")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, s.submitted)
}

func TestModel_QuickAction(t *testing.T) {
	s := newFakeSession()
	m := newTestModel(t, s)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyF2})
	drain(cmd)

	require.Len(t, s.submitted, 1)
	assert.Equal(t, prompts.QuickActions()[1].Prompt, s.submitted[0])
}

func TestModel_QuickActionHiddenAfterFirstTurn(t *testing.T) {
	s := newFakeSession()
	m := newTestModel(t, s)
	m, _ = update(t, m, SessionMsg{View: session.View{ShowQuickActions: false}})

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyF1})
	assert.Nil(t, cmd)
	assert.NotContains(t, m.View(), "Explain a concept")
}

func TestModel_AttachCommand(t *testing.T) {
	s := newFakeSession()
	m := newTestModel(t, s)
	m.openDocument = func(path string) (*transport.Document, error) {
		return transport.NewDocument("notes.pdf", []byte("%PDF-1.4\n")), nil
	}

	m = typeText(m, "/attach ~/notes.pdf")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	msgs := drain(cmd)

	require.Len(t, msgs, 1)
	done, ok := msgs[0].(attachDoneMsg)
	require.True(t, ok)
	assert.NoError(t, done.err)
	assert.Equal(t, []string{"notes.pdf"}, s.attached)

	m, _ = update(t, m, done)
	assert.Contains(t, m.status, "Attached notes.pdf")
}

func TestModel_AttachOpenFailure(t *testing.T) {
	s := newFakeSession()
	m := newTestModel(t, s)
	m.openDocument = func(string) (*transport.Document, error) {
		return nil, errs.Validation("file", "Only PDF files are allowed")
	}

	m = typeText(m, "/attach slides.pptx")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	msgs := drain(cmd)
	require.Len(t, msgs, 1)

	m, _ = update(t, m, msgs[0])
	assert.Empty(t, s.attached)
	assert.Contains(t, m.status, "Only PDF files are allowed")
}

func TestModel_AttachTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.pdf")
	require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0o600))

	s := newFakeSession()
	m := newTestModel(t, s)
	m.opts.MaxUploadBytes = 1024

	m = typeText(m, "/attach "+path)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	msgs := drain(cmd)
	require.Len(t, msgs, 1)

	m, _ = update(t, m, msgs[0])
	assert.Empty(t, s.attached)
	assert.Contains(t, m.status, "huge.pdf is")
}

func TestModel_AttachUsage(t *testing.T) {
	m := typeText(newTestModel(t, newFakeSession()), "/attach")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	msgs := drain(cmd)
	require.Len(t, msgs, 1)

	m, _ = update(t, m, msgs[0])
	assert.Contains(t, m.status, "Usage: /attach")
}

func TestModel_DetachNothingAttached(t *testing.T) {
	s := newFakeSession()
	s.detachErr = attachment.ErrNothingToRemove
	m := typeText(newTestModel(t, s), "/detach")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	msgs := drain(cmd)
	require.Len(t, msgs, 1)

	m, _ = update(t, m, msgs[0])
	assert.Equal(t, 1, s.detached)
	assert.Contains(t, m.status, "no document is attached")
}

func TestModel_UnknownCommand(t *testing.T) {
	m := typeText(newTestModel(t, newFakeSession()), "/frobnicate")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.status, "Unknown command /frobnicate")
}

func TestModel_AttachedBadge(t *testing.T) {
	m := newTestModel(t, newFakeSession())
	m, _ = update(t, m, SessionMsg{View: session.View{
		Attachment: attachment.Attachment{
			State: attachment.StateAttached, ResourceID: "r1", Filename: "biology.pdf", PageCount: 12,
		},
	}})

	assert.Contains(t, m.renderHeader(), "Answering from: biology.pdf (12 pages)")
}

func TestModel_BannerAndDismiss(t *testing.T) {
	s := newFakeSession()
	m := newTestModel(t, s)
	m, _ = update(t, m, SessionMsg{View: session.View{
		Banner: &session.Banner{Setting: "mistral.api_key", Message: "Mistral API key is not configured", Remedy: "Set STUDYMATE_MISTRAL_API_KEY."},
	}})

	out := m.View()
	assert.Contains(t, out, "Configuration needed")
	assert.Contains(t, out, "STUDYMATE_MISTRAL_API_KEY")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlB})
	drain(cmd)
	assert.Equal(t, 1, s.dismissed)
}

func TestModel_RenderAnswerWithCitations(t *testing.T) {
	m := newTestModel(t, newFakeSession())
	m.renderer = nil

	msg := model.NewAssistantMessage("Mitochondria make ATP [Page 3].")
	msg.Citations = []model.Citation{{Locator: 3, Excerpt: "The mitochondrion is the powerhouse"}}

	out := m.renderAnswer(msg)
	assert.Contains(t, out, "[p. 3]")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "Page 3: The mitochondrion is the powerhouse")
}

func TestModel_ErroredMessageRendered(t *testing.T) {
	m := newTestModel(t, newFakeSession())
	out := m.renderMessage(model.NewErroredMessage(prompts.ErrorReply("HTTP 502")))
	assert.Contains(t, out, prompts.ErrorPrefix)
}

func TestModel_CopyLastAnswer(t *testing.T) {
	s := newFakeSession()
	m := newTestModel(t, s)
	var copied string
	m.writeClipboard = func(text string) error { copied = text; return nil }

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	msgs := drain(cmd)
	require.Len(t, msgs, 1)
	assert.Equal(t, prompts.Greeting, copied)

	m, _ = update(t, m, msgs[0])
	assert.Contains(t, m.status, "Copied")
}

func TestModel_CopyFailure(t *testing.T) {
	m := newTestModel(t, newFakeSession())
	m.writeClipboard = func(string) error { return errors.New("no display") }

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	msgs := drain(cmd)
	m, _ = update(t, m, msgs[0])
	assert.Contains(t, m.status, "no display")
}

func TestModel_EscCancelsActiveTurn(t *testing.T) {
	s := newFakeSession()
	m := newTestModel(t, s)
	m, _ = update(t, m, SessionMsg{View: session.View{Turn: session.TurnAwaitingResponse}})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, 1, s.cancelled)
	assert.Contains(t, m.status, "Stopping")
}

func TestModel_QuitCancels(t *testing.T) {
	s := newFakeSession()
	m := newTestModel(t, s)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	_, isQuit := cmd().(tea.QuitMsg)
	assert.True(t, isQuit)
	assert.Equal(t, 1, s.cancelled)
}

func TestModel_HelpToggle(t *testing.T) {
	m := newTestModel(t, newFakeSession())
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlG})
	assert.True(t, m.showHelp)
	assert.Contains(t, m.renderConversation(), "/attach <file.pdf>")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.showHelp)
}

func TestSubmitStatus(t *testing.T) {
	assert.Empty(t, submitStatus(nil))
	assert.Empty(t, submitStatus(session.ErrBusy))
	assert.Empty(t, submitStatus(session.ErrStale))
	assert.Contains(t, submitStatus(errs.Validation("message", "must not be blank")), "must not be blank")
	assert.Empty(t, submitStatus(errs.Transport("chat", context.Canceled)))
	assert.Empty(t, submitStatus(errs.HTTPStatus("chat", 502, "")))
}

func TestParseCommand(t *testing.T) {
	name, arg := parseCommand("/Attach  my notes.pdf ")
	assert.Equal(t, "attach", name)
	assert.Equal(t, "my notes.pdf", arg)

	name, arg = parseCommand("/detach")
	assert.Equal(t, "detach", name)
	assert.Empty(t, arg)
}
