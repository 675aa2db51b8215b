// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompts

import (
	"strings"
	"testing"
)

func TestErrorReply(t *testing.T) {
	tests := []struct {
		detail string
		want   string
	}{
		{"", "Sorry, I encountered an error. Please try again."},
		{"chat failed (HTTP 502): Bad Gateway", "Sorry, I encountered an error: chat failed (HTTP 502): Bad Gateway. Please try again."},
		{"connection reset.", "Sorry, I encountered an error: connection reset. Please try again."},
	}
	for _, tc := range tests {
		if got := ErrorReply(tc.detail); got != tc.want {
			t.Errorf("ErrorReply(%q) = %q, want %q", tc.detail, got, tc.want)
		}
		if !strings.HasPrefix(ErrorReply(tc.detail), ErrorPrefix) {
			t.Errorf("ErrorReply(%q) lacks prefix", tc.detail)
		}
	}
}

func TestQuickActions(t *testing.T) {
	actions := QuickActions()
	if len(actions) != 3 {
		t.Fatalf("len(QuickActions()) = %d, want 3", len(actions))
	}
	for _, a := range actions {
		if a.Label == "" || a.Prompt == "" {
			t.Errorf("incomplete quick action %+v", a)
		}
	}
}

func TestStoppedReply(t *testing.T) {
	if strings.HasPrefix(StoppedReply, ErrorPrefix) {
		t.Errorf("StoppedReply should not read as an error: %q", StoppedReply)
	}
}
