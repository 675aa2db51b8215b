// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/studymate/internal/citation"
	"github.com/jeranaias/studymate/internal/config"
	"github.com/jeranaias/studymate/internal/model"
	"github.com/jeranaias/studymate/internal/session"
	"github.com/jeranaias/studymate/internal/transport"
	"github.com/jeranaias/studymate/internal/ui/styles"
	"github.com/jeranaias/studymate/internal/util"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// newMarkdownRenderer builds a glamour renderer for the configured theme,
// or nil if glamour cannot be initialized.
func newMarkdownRenderer(theme string) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(styles.NewTheme(theme).GlamourStyle()),
		glamour.WithWordWrap(GetTerminalWidth()-4),
	)
	if err != nil {
		return nil
	}
	return r
}

// renderMarkdown renders an answer with bold page markers. Returns the
// plain text if rendering fails or no renderer is available.
func renderMarkdown(r *glamour.TermRenderer, plan citation.Plan) string {
	md := plan.Render(func(s citation.Segment) string {
		return fmt.Sprintf("**[p. %d]**", s.Locator)
	})
	if r == nil {
		return md
	}
	rendered, err := r.Render(md)
	if err != nil {
		return md
	}
	return rendered
}

// =============================================================================
// ASK COMMAND
// =============================================================================

// askResult is the --json output of ask.
type askResult struct {
	Question   string           `json:"question"`
	Answer     string           `json:"answer"`
	ResourceID string           `json:"resource_id,omitempty"`
	Document   string           `json:"document,omitempty"`
	Citations  []model.Citation `json:"citations,omitempty"`
	Pages      []int            `json:"pages,omitempty"`
}

// Execute answers one question. With --pdf the document is uploaded first
// and the answer is grounded on it.
func (c *AskCmd) Execute(args []string) error {
	question := strings.TrimSpace(strings.Join(append(c.Args.Question, args...), " "))
	if question == "" {
		return usageErrorf("ask", "a question is required")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if c.PDF != "" {
		if err := c.attach(ctx, ctrl, cfg); err != nil {
			return err
		}
	}

	// Stream straight to stdout unless the answer is post-processed.
	streamTo := c.app.out
	if c.JSON || c.markdown() {
		streamTo = io.Discard
	}
	unsubscribe := ctrl.Subscribe(newStreamPrinter(streamTo))
	err = ctrl.Submit(ctx, question)
	unsubscribe()

	v := ctrl.View()
	if err != nil {
		if c.JSON {
			return err
		}
		printTurnResult(c.app.errOut, v, err)
		return err
	}

	last, _ := v.LastAssistant()
	plan := citation.Extract(last.Text, last.Citations)

	switch {
	case c.JSON:
		att := ctrl.Attachment()
		return writeJSON(c.app.out, askResult{
			Question:   question,
			Answer:     last.Text,
			ResourceID: att.ResourceID,
			Document:   att.Filename,
			Citations:  plan.Sources,
			Pages:      plan.Locators(),
		})
	case c.markdown():
		fmt.Fprint(c.app.out, renderMarkdown(newMarkdownRenderer(cfg.UI.Theme), plan))
		printSources(c.app.out, plan)
	default:
		printTurnResult(c.app.out, v, nil)
	}
	return nil
}

func (c *AskCmd) markdown() bool {
	return c.Markdown && IsStdoutTTY()
}

func (c *AskCmd) attach(ctx context.Context, ctrl *session.Controller, cfg *config.Config) error {
	path := util.ExpandHome(c.PDF)
	if info, err := os.Stat(path); err == nil && info.Size() > maxUploadBytes(cfg) {
		return usageErrorf("ask", "%s is %s; the limit is %s", info.Name(),
			transport.FormatSize(info.Size()), transport.FormatSize(maxUploadBytes(cfg)))
	}
	doc, err := transport.OpenDocument(path)
	if err != nil {
		return err
	}
	if !c.JSON {
		fmt.Fprintln(c.app.errOut, DimStyle.Render(fmt.Sprintf("Uploading %s (%s)...", doc.Name, transport.FormatSize(doc.Size))))
	}
	if err := ctrl.Attach(ctx, doc); err != nil {
		return err
	}
	if !c.JSON {
		fmt.Fprintln(c.app.errOut, DimStyle.Render("Answering from "+describeAttachment(ctrl.Attachment())))
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
