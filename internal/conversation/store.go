// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation holds the ordered message log of a study session.
//
// The Store has a single writer, the session controller. Every mutation is
// checked against the current in-flight marker, so a chunk from a cancelled
// or finished stream fails with a ProtocolError instead of corrupting the log.
package conversation

import (
	"strings"
	"sync"

	"github.com/jeranaias/studymate/internal/errs"
	"github.com/jeranaias/studymate/internal/model"
)

// MaxMessages is the maximum number of messages kept in the log.
// When exceeded, the oldest turns are pruned. The seed greeting and the
// in-flight message are never pruned.
const MaxMessages = 500

// =============================================================================
// STORE
// =============================================================================

// Store is an ordered log of messages with at most one in-flight message.
type Store struct {
	mu       sync.RWMutex
	messages []model.Message
	seedID   string
	inFlight string
}

// New creates a store holding only the seed greeting.
func New(seed model.Message) *Store {
	s := &Store{}
	s.Reset(seed)
	return s
}

// Append adds a message to the end of the log. Appending a second in-flight
// message fails with a ProtocolError.
func (s *Store) Append(msg model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.IsInFlight() && s.inFlight != "" {
		return errs.Protocol("append", msg.ID, "another message is already in flight: "+s.inFlight)
	}
	if s.indexOf(msg.ID) >= 0 {
		return errs.Protocol("append", msg.ID, "duplicate message id")
	}

	s.messages = append(s.messages, msg.Clone())
	if msg.IsInFlight() {
		s.inFlight = msg.ID
	}
	s.pruneOldMessages()
	return nil
}

// MutateInFlight replaces the text of the in-flight message with accumulated.
// accumulated must extend the stored text, and delta must be the extension.
func (s *Store) MutateInFlight(id, delta, accumulated string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.inFlightIndex("mutate", id)
	if err != nil {
		return err
	}
	current := s.messages[i].Text
	if !strings.HasPrefix(accumulated, current) {
		return errs.Protocol("mutate", id, "accumulated text does not extend stored text")
	}
	if accumulated[len(current):] != delta {
		return errs.Protocol("mutate", id, "delta does not match accumulated text")
	}
	s.messages[i].Text = accumulated
	return nil
}

// Finalize freezes the in-flight message as complete and attaches citations.
func (s *Store) Finalize(id string, citations []model.Citation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.inFlightIndex("finalize", id)
	if err != nil {
		return err
	}
	s.messages[i].Status = model.StatusComplete
	if len(citations) > 0 {
		s.messages[i].Citations = append([]model.Citation(nil), citations...)
	}
	s.inFlight = ""
	return nil
}

// MarkErrored freezes the in-flight message as errored with text.
func (s *Store) MarkErrored(id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.inFlightIndex("mark errored", id)
	if err != nil {
		return err
	}
	s.messages[i].Status = model.StatusErrored
	s.messages[i].Text = text
	s.inFlight = ""
	return nil
}

// Remove deletes a message by id. Removing the seed is not allowed.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == s.seedID {
		return errs.Protocol("remove", id, "the seed greeting cannot be removed")
	}
	i := s.indexOf(id)
	if i < 0 {
		return errs.Protocol("remove", id, "no such message")
	}
	s.messages = append(s.messages[:i], s.messages[i+1:]...)
	if s.inFlight == id {
		s.inFlight = ""
	}
	return nil
}

// Reset atomically replaces the log with the seed and clears the in-flight
// marker. Any later mutation aimed at a message from before the reset fails.
func (s *Store) Reset(seed model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seed = seed.Clone()
	seed.Status = model.StatusComplete
	s.messages = []model.Message{seed}
	s.seedID = seed.ID
	s.inFlight = ""
}

// =============================================================================
// READERS
// =============================================================================

// Snapshot returns a copy of the log in order.
func (s *Store) Snapshot() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Clone()
	}
	return out
}

// History returns prior turns for a transport. The seed greeting, the
// in-flight message, errored messages and the questions they answered are
// excluded.
func (s *Store) History() []model.HistoryTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := make([]model.HistoryTurn, 0, len(s.messages))
	for i, m := range s.messages {
		if m.ID == s.seedID || m.Status != model.StatusComplete {
			continue
		}
		// A question whose answer failed is dropped with the answer.
		if m.Role == model.RoleUser && i+1 < len(s.messages) && s.messages[i+1].Status == model.StatusErrored {
			continue
		}
		turns = append(turns, m.Turn())
	}
	return turns
}

// InFlightID returns the id of the in-flight message, if any.
func (s *Store) InFlightID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight, s.inFlight != ""
}

// SeedID returns the id of the current seed greeting.
func (s *Store) SeedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seedID
}

// Len returns the number of messages in the log.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// OnlySeed reports whether the log holds nothing but the greeting.
func (s *Store) OnlySeed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages) == 1 && s.messages[0].ID == s.seedID
}

// =============================================================================
// INTERNAL
// =============================================================================

func (s *Store) indexOf(id string) int {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) inFlightIndex(op, id string) (int, error) {
	if s.inFlight == "" || s.inFlight != id {
		return -1, errs.Protocol(op, id, "not the current in-flight message")
	}
	i := s.indexOf(id)
	if i < 0 {
		return -1, errs.Protocol(op, id, "in-flight message missing from log")
	}
	return i, nil
}

// pruneOldMessages drops the oldest messages beyond MaxMessages, keeping the
// seed and the in-flight message.
func (s *Store) pruneOldMessages() {
	excess := len(s.messages) - MaxMessages
	if excess <= 0 {
		return
	}
	kept := s.messages[:0]
	for _, m := range s.messages {
		if excess > 0 && m.ID != s.seedID && m.ID != s.inFlight {
			excess--
			continue
		}
		kept = append(kept, m)
	}
	s.messages = kept
}
