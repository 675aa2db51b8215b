// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package citation turns answer text into a render plan with inline
// [Page N] markers and a short trailing list of sources.
package citation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jeranaias/studymate/internal/model"
)

// MaxSources caps the trailing source list.
const MaxSources = 3

// pagePattern matches "[Page 3]", "[page 12]", "[ PAGE  7 ]". Locators are
// limited to nine digits so they always fit an int.
var pagePattern = regexp.MustCompile(`(?i)\[\s*page\s*(\d{1,9})\s*\]`)

// SegmentKind distinguishes plain text from citation markers.
type SegmentKind int

const (
	SegmentText SegmentKind = iota
	SegmentCitation
)

// Segment is one run of a render plan. For a citation, Text is the matched
// token exactly as it appeared and Locator is its page number.
type Segment struct {
	Kind    SegmentKind
	Text    string
	Locator int
}

// Plan is the structured form of an answer.
type Plan struct {
	Segments []Segment
	Sources  []model.Citation
}

// Extract splits text into plain and citation segments and attaches up to
// MaxSources out-of-band sources. It is total: any input, including one
// without matches, yields a valid plan.
func Extract(text string, sources []model.Citation) Plan {
	var p Plan

	matches := pagePattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		p.Segments = []Segment{{Kind: SegmentText, Text: text}}
	} else {
		last := 0
		for _, m := range matches {
			if m[0] > last {
				p.Segments = append(p.Segments, Segment{Kind: SegmentText, Text: text[last:m[0]]})
			}
			page, _ := strconv.Atoi(text[m[2]:m[3]])
			p.Segments = append(p.Segments, Segment{
				Kind:    SegmentCitation,
				Text:    text[m[0]:m[1]],
				Locator: page,
			})
			last = m[1]
		}
		if last < len(text) {
			p.Segments = append(p.Segments, Segment{Kind: SegmentText, Text: text[last:]})
		}
	}

	if len(sources) > MaxSources {
		sources = sources[:MaxSources]
	}
	if len(sources) > 0 {
		p.Sources = append([]model.Citation(nil), sources...)
	}
	return p
}

// PlainText concatenates every segment, reproducing the input text.
func (p Plan) PlainText() string {
	var b strings.Builder
	for _, s := range p.Segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Locators returns the distinct cited pages in order of first appearance.
func (p Plan) Locators() []int {
	var out []int
	seen := make(map[int]bool)
	for _, s := range p.Segments {
		if s.Kind == SegmentCitation && !seen[s.Locator] {
			seen[s.Locator] = true
			out = append(out, s.Locator)
		}
	}
	return out
}

// HasCitations reports whether the plan has any inline marker or source.
func (p Plan) HasCitations() bool {
	return len(p.Sources) > 0 || len(p.Locators()) > 0
}

// Render rewrites the text with marker applied to each citation segment.
func (p Plan) Render(marker func(Segment) string) string {
	var b strings.Builder
	for _, s := range p.Segments {
		if s.Kind == SegmentCitation && marker != nil {
			b.WriteString(marker(s))
			continue
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

// SourceLine formats a source for the trailing list, trimming the excerpt
// to maxExcerpt runes.
func SourceLine(c model.Citation, maxExcerpt int) string {
	excerpt := strings.Join(strings.Fields(c.Excerpt), " ")
	if r := []rune(excerpt); maxExcerpt > 3 && len(r) > maxExcerpt {
		excerpt = string(r[:maxExcerpt-3]) + "..."
	}
	if excerpt == "" {
		return fmt.Sprintf("Page %d", c.Locator)
	}
	return fmt.Sprintf("Page %d: %s", c.Locator, excerpt)
}
