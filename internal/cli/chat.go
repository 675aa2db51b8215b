// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat for terminals where the full-screen UI is not
// wanted or not possible.
//
// Interactive Commands:
//   /attach <file.pdf>  Upload a PDF and answer from it
//   /detach             Remove the document and start over
//   /status             Show what questions are answered from
//   /help, /h           Show available commands
//   /quit, /q           Exit chat
//   Ctrl+C              Stop the current answer
//   Ctrl+D              Exit chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/jeranaias/studymate/internal/attachment"
	"github.com/jeranaias/studymate/internal/config"
	"github.com/jeranaias/studymate/internal/errs"
	"github.com/jeranaias/studymate/internal/session"
	"github.com/jeranaias/studymate/internal/transport"
	"github.com/jeranaias/studymate/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// chatCommands are offered by tab completion.
var chatCommands = []string{"/attach ", "/detach", "/status", "/help", "/quit"}

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI whose history lives in the config directory.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeCommand)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	c := &ChatCLI{line: line, historyFile: filepath.Join(dir, "chat_history")}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line with history navigation.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

func completeCommand(line string) []string {
	if !strings.HasPrefix(line, "/") {
		return nil
	}
	var out []string
	for _, cmd := range chatCommands {
		if strings.HasPrefix(cmd, strings.ToLower(line)) {
			out = append(out, cmd)
		}
	}
	return out
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

// Execute runs the line-mode chat until /quit or end of input.
func (c *ChatCmd) Execute(args []string) error {
	if len(args) > 0 {
		return usageErrorf("chat", "unexpected argument %q (quote your question or use 'ask')", args[0])
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
	c.app.plainOutput()

	r := &chatREPL{
		ctrl:      ctrl,
		out:       c.app.out,
		maxUpload: maxUploadBytes(cfg),
		logger:    c.app.logger(),
	}
	unsubscribe := ctrl.Subscribe(newStreamPrinter(c.app.out))
	defer unsubscribe()

	r.welcome(cfg.Mistral.Model)
	if c.PDF != "" {
		r.attach(c.PDF)
	}

	input := NewChatCLI()
	defer input.Close()
	return r.loop(input)
}

// =============================================================================
// REPL
// =============================================================================

// lineReader is the part of ChatCLI the loop needs.
type lineReader interface {
	ReadInput(prompt string) (string, error)
}

type chatREPL struct {
	ctrl      *session.Controller
	out       io.Writer
	maxUpload int64
	logger    *zap.Logger
}

func (r *chatREPL) welcome(model string) {
	fmt.Fprintln(r.out, TitleStyle.Render("studymate")+" "+DimStyle.Render(model))
	if last, ok := r.ctrl.View().LastAssistant(); ok {
		fmt.Fprintln(r.out, last.Text)
	}
	printBanner(r.out, r.ctrl.View().Banner)
	fmt.Fprintln(r.out, DimStyle.Render("Type /help for commands, Ctrl+C to stop an answer, Ctrl+D to exit."))
	fmt.Fprintln(r.out)
}

func (r *chatREPL) loop(in lineReader) error {
	for {
		line, err := in.ReadInput("> ")
		if errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(r.out, DimStyle.Render("Use /quit or Ctrl+D to exit."))
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return err
		}

		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "/") {
			if quit := r.command(text); quit {
				return nil
			}
			continue
		}
		r.ask(line)
	}
}

// ask runs one turn. Ctrl+C cancels the turn instead of the process.
func (r *chatREPL) ask(text string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintln(r.out, PromptStyle.Render("Assistant"))
	err := r.ctrl.Submit(ctx, text)
	printTurnResult(r.out, r.ctrl.View(), err)
	fmt.Fprintln(r.out)
}

func (r *chatREPL) command(input string) (quit bool) {
	name, arg, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "attach", "upload":
		if arg == "" {
			fmt.Fprintln(r.out, WarningStyle.Render("Usage: /attach <file.pdf>"))
			return false
		}
		r.attach(arg)
	case "detach", "remove":
		r.detach()
	case "status", "s":
		r.status()
	case "help", "h", "?":
		r.help()
	case "quit", "q", "exit":
		return true
	default:
		fmt.Fprintln(r.out, WarningStyle.Render(fmt.Sprintf("Unknown command /%s. Try /help.", name)))
	}
	return false
}

func (r *chatREPL) attach(path string) {
	path = util.ExpandHome(path)
	if r.maxUpload > 0 {
		if info, err := os.Stat(path); err == nil && info.Size() > r.maxUpload {
			fmt.Fprintln(r.out, ErrorStyle.Render(fmt.Sprintf("%s is %s; the limit is %s",
				filepath.Base(path), transport.FormatSize(info.Size()), transport.FormatSize(r.maxUpload))))
			return
		}
	}

	doc, err := transport.OpenDocument(path)
	if err != nil {
		fmt.Fprintln(r.out, ErrorStyle.Render("Cannot upload: ")+describeError(err))
		printHint(r.out, "Upload failed", err)
		return
	}

	fmt.Fprintln(r.out, DimStyle.Render(fmt.Sprintf("Uploading %s (%s)...", doc.Name, transport.FormatSize(doc.Size))))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := r.ctrl.Attach(ctx, doc); err != nil {
		r.logger.Warn("upload failed", zap.String("file", doc.Name), zap.Error(err))
		fmt.Fprintln(r.out, ErrorStyle.Render("Upload failed: ")+describeError(err))
		printHint(r.out, "Upload failed", err)
		return
	}
	att := r.ctrl.Attachment()
	fmt.Fprintln(r.out, SuccessStyle.Render("Attached ")+describeAttachment(att))
	fmt.Fprintln(r.out, DimStyle.Render("Questions are now answered from this document. /detach to go back."))
}

func (r *chatREPL) detach() {
	err := r.ctrl.Detach(context.Background())
	switch {
	case errors.Is(err, attachment.ErrNothingToRemove):
		fmt.Fprintln(r.out, WarningStyle.Render("No document is attached."))
	case err != nil:
		fmt.Fprintln(r.out, ErrorStyle.Render(describeError(err)))
	default:
		fmt.Fprintln(r.out, DimStyle.Render("Document removed. Back to general chat."))
	}
}

func (r *chatREPL) status() {
	att := r.ctrl.Attachment()
	switch att.State {
	case attachment.StateAttached:
		fmt.Fprintln(r.out, RenderLabel("Answering from", describeAttachment(att)))
		fmt.Fprintln(r.out, RenderLabel("Resource", att.ResourceID))
	case attachment.StateError:
		fmt.Fprintln(r.out, RenderLabel("Last upload", "failed: "+att.ErrorDetail))
	default:
		fmt.Fprintln(r.out, RenderLabel("Answering from", "general knowledge"))
	}
	fmt.Fprintln(r.out, RenderLabel("Messages", fmt.Sprintf("%d", len(r.ctrl.View().Messages))))
}

func (r *chatREPL) help() {
	rows := [][2]string{
		{"/attach <file.pdf>", "upload a PDF and answer from it"},
		{"/detach", "remove the document and start over"},
		{"/status", "show what questions are answered from"},
		{"/quit", "exit"},
	}
	for _, row := range rows {
		fmt.Fprintln(r.out, "  "+PromptStyle.Render(util.PadRight(row[0], 20))+DimStyle.Render(row[1]))
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func describeAttachment(att attachment.Attachment) string {
	if att.PageCount > 0 {
		return fmt.Sprintf("%s (%d pages)", att.Filename, att.PageCount)
	}
	return att.Filename
}

// describeError prefers the human-readable detail of a wrapped error.
func describeError(err error) string {
	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var te *errs.TransportError
	if errors.As(err, &te) && te.Detail != "" {
		return te.Detail
	}
	if cfgErr, ok := errs.AsConfiguration(err); ok {
		return cfgErr.Message
	}
	return err.Error()
}
