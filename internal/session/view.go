// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"

	"github.com/jeranaias/studymate/internal/attachment"
	"github.com/jeranaias/studymate/internal/errs"
	"github.com/jeranaias/studymate/internal/model"
)

// =============================================================================
// TURN STATE
// =============================================================================

// TurnState is the controller's position in the current turn.
type TurnState int

const (
	TurnIdle TurnState = iota
	TurnAwaitingResponse
	TurnStreaming
	TurnSettled
	TurnFailed
)

// String returns the string representation of the turn state.
func (s TurnState) String() string {
	switch s {
	case TurnIdle:
		return "idle"
	case TurnAwaitingResponse:
		return "awaiting_response"
	case TurnStreaming:
		return "streaming"
	case TurnSettled:
		return "settled"
	case TurnFailed:
		return "failed"
	default:
		return fmt.Sprintf("TurnState(%d)", int(s))
	}
}

// Active reports whether a turn is in progress.
func (s TurnState) Active() bool {
	return s == TurnAwaitingResponse || s == TurnStreaming
}

// =============================================================================
// BANNER
// =============================================================================

// Banner is a persistent, dismissible notice for a configuration problem.
type Banner struct {
	Setting string
	Message string
	Remedy  string
}

func bannerFrom(cfgErr *errs.ConfigurationError) *Banner {
	return &Banner{Setting: cfgErr.Setting, Message: cfgErr.Message, Remedy: cfgErr.Remedy}
}

// =============================================================================
// VIEW
// =============================================================================

// View is an immutable snapshot of the session for presentation.
type View struct {
	Messages   []model.Message
	Turn       TurnState
	Attachment attachment.Attachment

	// Banner is nil when there is nothing to show.
	Banner *Banner

	// ShowQuickActions is true while the conversation holds only the
	// greeting and no turn is active.
	ShowQuickActions bool
}

// InputEnabled reports whether a submission would be accepted.
func (v View) InputEnabled() bool {
	return v.Turn == TurnIdle
}

// LastAssistant returns the most recent assistant message, if any.
func (v View) LastAssistant() (model.Message, bool) {
	for i := len(v.Messages) - 1; i >= 0; i-- {
		if v.Messages[i].Role == model.RoleAssistant {
			return v.Messages[i], true
		}
	}
	return model.Message{}, false
}

// =============================================================================
// OBSERVER
// =============================================================================

// Observer receives a View after every change to the session.
type Observer interface {
	SessionChanged(View)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(View)

// SessionChanged calls f(v).
func (f ObserverFunc) SessionChanged(v View) {
	f(v)
}
