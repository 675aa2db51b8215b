// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/jeranaias/studymate/internal/citation"
	"github.com/jeranaias/studymate/internal/errs"
	"github.com/jeranaias/studymate/internal/model"
	"github.com/jeranaias/studymate/internal/session"
	"github.com/jeranaias/studymate/internal/ui/components"
)

// =============================================================================
// STREAM PRINTER
// =============================================================================

// streamPrinter writes an answer to out as it streams. It follows the
// newest in-flight assistant message and prints only the text it has not
// printed yet; messages that were never seen in flight are ignored.
type streamPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	id      string
	printed int
}

func newStreamPrinter(out io.Writer) *streamPrinter {
	return &streamPrinter{out: out}
}

// SessionChanged implements session.Observer.
func (p *streamPrinter) SessionChanged(v session.View) {
	if len(v.Messages) == 0 {
		return
	}
	last := v.Messages[len(v.Messages)-1]
	if last.Role != model.RoleAssistant {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if last.IsInFlight() && last.ID != p.id {
		p.id = last.ID
		p.printed = 0
	}
	if last.ID != p.id {
		return
	}
	if len(last.Text) > p.printed {
		io.WriteString(p.out, last.Text[p.printed:])
		p.printed = len(last.Text)
	}
	if last.Status.IsTerminal() {
		p.id = ""
		p.printed = 0
	}
}

// =============================================================================
// TURN RESULTS
// =============================================================================

// printTurnResult finishes a streamed answer: the source list on success,
// otherwise whatever explains the failure.
func printTurnResult(out io.Writer, v session.View, err error) {
	fmt.Fprintln(out)

	switch {
	case err == nil:
		last, ok := v.LastAssistant()
		if !ok {
			return
		}
		printSources(out, citation.Extract(last.Text, last.Citations))

	case errors.Is(err, context.Canceled):
		fmt.Fprintln(out, DimStyle.Render("Answer stopped."))

	case errs.IsConfiguration(err):
		printBanner(out, v.Banner)

	case errs.IsValidation(err):
		fmt.Fprintln(out, WarningStyle.Render(err.Error()))

	default:
		if last, ok := v.LastAssistant(); ok && last.Status == model.StatusErrored {
			fmt.Fprintln(out, ErrorStyle.Render(last.Text))
		} else {
			fmt.Fprintln(out, ErrorStyle.Render(err.Error()))
		}
		printHint(out, "Answer failed", err)
	}
}

// printHint prints the suggestions matching err, if any.
func printHint(out io.Writer, title string, err error) {
	hint := components.SmartErrorFromError(title, err)
	for _, s := range hint.Suggestions {
		fmt.Fprintln(out, DimStyle.Render("  Tip: "+s))
	}
}

func printSources(out io.Writer, plan citation.Plan) {
	if len(plan.Sources) == 0 {
		return
	}
	fmt.Fprintln(out, DimStyle.Render("Sources:"))
	for _, src := range plan.Sources {
		fmt.Fprintln(out, DimStyle.Render("  - "+citation.SourceLine(src, GetTerminalWidth()-8)))
	}
}

func printBanner(out io.Writer, b *session.Banner) {
	if b == nil {
		return
	}
	fmt.Fprintln(out, WarningStyle.Render("Configuration needed: ")+b.Message)
	if b.Remedy != "" {
		fmt.Fprintln(out, DimStyle.Render(b.Remedy))
	}
}
