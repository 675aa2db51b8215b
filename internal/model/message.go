// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// STATUS TYPE
// =============================================================================

// Status is the lifecycle state of a message.
type Status string

const (
	StatusComplete Status = "complete"
	StatusInFlight Status = "in_flight"
	StatusErrored  Status = "errored"
)

// IsTerminal reports whether the message can no longer change.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusErrored
}

// =============================================================================
// CITATION TYPE
// =============================================================================

// Citation is a reference surfaced by the document-grounded backend.
type Citation struct {
	Locator   int     `json:"page"`
	Excerpt   string  `json:"text"`
	Relevance float64 `json:"relevance_score,omitempty"`
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
//
// ID, Role and CreatedAt never change after creation. Text, Status and
// Citations are changed only by the conversation store on behalf of the
// session controller.
type Message struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Text      string     `json:"text"`
	Status    Status     `json:"status"`
	Citations []Citation `json:"citations,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewMessage creates a complete message with a fresh ID.
func NewMessage(role Role, text string) Message {
	return Message{
		ID:        NewID(),
		Role:      role,
		Text:      text,
		Status:    StatusComplete,
		CreatedAt: time.Now(),
	}
}

// NewUserMessage creates a complete user message.
func NewUserMessage(text string) Message {
	return NewMessage(RoleUser, text)
}

// NewAssistantMessage creates a complete assistant message.
func NewAssistantMessage(text string) Message {
	return NewMessage(RoleAssistant, text)
}

// NewPlaceholder creates the empty in-flight assistant message that a
// stream fills in.
func NewPlaceholder() Message {
	msg := NewMessage(RoleAssistant, "")
	msg.Status = StatusInFlight
	return msg
}

// NewErroredMessage creates a terminal assistant message describing a failure.
func NewErroredMessage(text string) Message {
	msg := NewMessage(RoleAssistant, text)
	msg.Status = StatusErrored
	return msg
}

// Clone returns a deep copy so callers cannot alias the citation slice.
func (m Message) Clone() Message {
	if m.Citations != nil {
		m.Citations = append([]Citation(nil), m.Citations...)
	}
	return m
}

// IsInFlight reports whether the message is still being streamed.
func (m Message) IsInFlight() bool {
	return m.Status == StatusInFlight
}

// Preview returns a truncated preview of the message text.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	if utf8.RuneCountInString(m.Text) <= maxLen {
		return m.Text
	}
	runes := []rune(m.Text)
	if maxLen < 4 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// Turn converts the message to the role/content pair sent to transports.
func (m Message) Turn() HistoryTurn {
	return HistoryTurn{Role: m.Role.String(), Content: m.Text}
}

// =============================================================================
// HISTORY TURN
// =============================================================================

// HistoryTurn is one prior turn as seen by a transport.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// NewID returns a unique message ID. UUIDv7 values are time-ordered and
// strictly increasing within the process, so two messages created in the
// same clock tick still get distinct, ordered IDs.
func NewID() string {
	return "msg_" + uuid.Must(uuid.NewV7()).String()
}
