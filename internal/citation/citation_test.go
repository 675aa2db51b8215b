// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package citation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/studymate/internal/model"
)

func TestExtract_Segments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Segment
	}{
		{
			name: "no match is one plain segment",
			in:   "Newton's first law is about inertia.",
			want: []Segment{{Kind: SegmentText, Text: "Newton's first law is about inertia."}},
		},
		{
			name: "empty input",
			in:   "",
			want: []Segment{{Kind: SegmentText, Text: ""}},
		},
		{
			name: "inline marker",
			in:   "Force equals mass times acceleration [Page 3].",
			want: []Segment{
				{Kind: SegmentText, Text: "Force equals mass times acceleration "},
				{Kind: SegmentCitation, Text: "[Page 3]", Locator: 3},
				{Kind: SegmentText, Text: "."},
			},
		},
		{
			name: "case and whitespace",
			in:   "[ page  12 ][PAGE 4]",
			want: []Segment{
				{Kind: SegmentCitation, Text: "[ page  12 ]", Locator: 12},
				{Kind: SegmentCitation, Text: "[PAGE 4]", Locator: 4},
			},
		},
		{
			name: "near misses stay plain",
			in:   "[Page] [Page x] [Pages 3] (Page 3) [Page 1234567890]",
			want: []Segment{{Kind: SegmentText, Text: "[Page] [Page x] [Pages 3] (Page 3) [Page 1234567890]"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Extract(tc.in, nil)
			assert.Equal(t, tc.want, p.Segments)
			assert.Equal(t, tc.in, p.PlainText())
		})
	}
}

func TestExtract_Idempotent(t *testing.T) {
	sources := []model.Citation{{Locator: 3, Excerpt: "F = ma"}}
	inputs := []string{
		"",
		"plain",
		"See [Page 3] and [page 4].",
		"[Page 3]",
		"[[Page 3]]",
		"unterminated [Page 3",
		"unicode ü [Page 9] 日本",
		"\n\n[Page 1]\n",
	}

	for _, in := range inputs {
		first := Extract(in, sources)
		second := Extract(first.PlainText(), sources)
		assert.Equal(t, first, second, "input %q", in)
	}
}

func TestExtract_SourcesCappedAtThree(t *testing.T) {
	var sources []model.Citation
	for i := 1; i <= 5; i++ {
		sources = append(sources, model.Citation{Locator: i, Excerpt: fmt.Sprintf("excerpt %d", i)})
	}

	p := Extract("answer", sources)
	require.Len(t, p.Sources, MaxSources)
	assert.Equal(t, 1, p.Sources[0].Locator)
	assert.Equal(t, 3, p.Sources[2].Locator)

	sources[0].Locator = 99
	assert.Equal(t, 1, p.Sources[0].Locator, "plan must hold copies")
}

// Scenario: grounded answer with an inline marker plus one out-of-band source.
func TestExtract_GroundedAnswer(t *testing.T) {
	p := Extract("Page three covers momentum [Page 3].", []model.Citation{{Locator: 3, Excerpt: "..."}})

	var markers []Segment
	for _, s := range p.Segments {
		if s.Kind == SegmentCitation {
			markers = append(markers, s)
		}
	}
	require.Len(t, markers, 1)
	assert.Equal(t, "[Page 3]", markers[0].Text)
	assert.Equal(t, 3, markers[0].Locator)
	require.Len(t, p.Sources, 1)
	assert.Equal(t, model.Citation{Locator: 3, Excerpt: "..."}, p.Sources[0])
	assert.True(t, p.HasCitations())
}

func TestPlan_Locators(t *testing.T) {
	p := Extract("[Page 4] then [Page 2] and again [page 4]", nil)
	assert.Equal(t, []int{4, 2}, p.Locators())
	assert.False(t, Extract("none", nil).HasCitations())
}

func TestPlan_Render(t *testing.T) {
	p := Extract("See [Page 3].", nil)
	got := p.Render(func(s Segment) string { return fmt.Sprintf("<p%d>", s.Locator) })
	assert.Equal(t, "See <p3>.", got)
	assert.Equal(t, "See [Page 3].", p.Render(nil))
}

func TestSourceLine(t *testing.T) {
	assert.Equal(t, "Page 3: F = ma", SourceLine(model.Citation{Locator: 3, Excerpt: "F =\n ma"}, 40))
	assert.Equal(t, "Page 5", SourceLine(model.Citation{Locator: 5}, 40))
	assert.Equal(t, "Page 1: abc...", SourceLine(model.Citation{Locator: 1, Excerpt: "abcdefgh"}, 6))
}
