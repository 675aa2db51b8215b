// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attachment manages the single document a session can be grounded
// on. It is a strict state machine:
//
//	absent --BeginUpload--> uploading --CompleteUpload--> attached
//	                        uploading --FailUpload-----> error
//	error  --BeginUpload--> uploading
//	attached|error --Remove--> absent
//
// There is no edge from attached to uploading: a document must be removed
// before it can be replaced.
package attachment

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jeranaias/studymate/internal/transport"
)

// State is the lifecycle state of the attachment.
type State int

const (
	StateAbsent State = iota
	StateUploading
	StateAttached
	StateError
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateUploading:
		return "uploading"
	case StateAttached:
		return "attached"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Rejected transitions.
var (
	ErrUploadInProgress = errors.New("an upload is already in progress")
	ErrAlreadyAttached  = errors.New("a document is already attached; remove it first")
	ErrNotUploading     = errors.New("no upload in progress")
	ErrNothingToRemove  = errors.New("no document to remove")
)

// Attachment is an immutable snapshot of the manager's state.
//
// ResourceID, Filename and PageCount are set only in StateAttached.
// ErrorDetail is set only in StateError. Pending names the file being
// uploaded in StateUploading.
type Attachment struct {
	State       State
	ResourceID  string
	Filename    string
	PageCount   int
	ErrorDetail string
	Pending     string
}

// IsAttached reports whether chat should be grounded on the document.
func (a Attachment) IsAttached() bool {
	return a.State == StateAttached
}

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies a transition.
type EventKind int

const (
	EventUploadStarted EventKind = iota
	EventAttached
	EventFailed
	EventRemoved
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventUploadStarted:
		return "upload_started"
	case EventAttached:
		return "attached"
	case EventFailed:
		return "failed"
	case EventRemoved:
		return "removed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event describes a completed transition. Previous is the snapshot before it.
type Event struct {
	Kind     EventKind
	Current  Attachment
	Previous Attachment
}

// Listener is called after every transition, outside the manager's lock.
type Listener func(Event)

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns the attachment record. All methods are safe for concurrent
// use; readers never see a partially populated record.
type Manager struct {
	mu        sync.Mutex
	current   Attachment
	listeners map[int]Listener
	nextID    int
}

// NewManager creates a manager in StateAbsent.
func NewManager() *Manager {
	return &Manager{listeners: make(map[int]Listener)}
}

// Snapshot returns the current record.
func (m *Manager) Snapshot() Attachment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Subscribe registers l and returns a function that removes it.
func (m *Manager) Subscribe(l Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// BeginUpload validates doc and moves absent|error to uploading.
// Invalid documents return a ValidationError and leave the state unchanged.
func (m *Manager) BeginUpload(doc *transport.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	return m.transition(EventUploadStarted, func(cur Attachment) (Attachment, error) {
		switch cur.State {
		case StateUploading:
			return cur, ErrUploadInProgress
		case StateAttached:
			return cur, ErrAlreadyAttached
		}
		return Attachment{State: StateUploading, Pending: doc.Name}, nil
	})
}

// CompleteUpload moves uploading to attached with the backend's metadata.
func (m *Manager) CompleteUpload(res transport.UploadResult) error {
	return m.transition(EventAttached, func(cur Attachment) (Attachment, error) {
		if cur.State != StateUploading {
			return cur, ErrNotUploading
		}
		if res.ResourceID == "" {
			return cur, errors.New("upload result has no resource id")
		}
		return Attachment{
			State:      StateAttached,
			ResourceID: res.ResourceID,
			Filename:   res.Filename,
			PageCount:  res.PageCount,
		}, nil
	})
}

// FailUpload moves uploading to error with a detail for display.
func (m *Manager) FailUpload(detail string) error {
	return m.transition(EventFailed, func(cur Attachment) (Attachment, error) {
		if cur.State != StateUploading {
			return cur, ErrNotUploading
		}
		if detail == "" {
			detail = "upload failed"
		}
		return Attachment{State: StateError, ErrorDetail: detail, Pending: cur.Pending}, nil
	})
}

// Remove moves attached|error to absent. The Removed event tells the
// session to reset its conversation.
func (m *Manager) Remove() error {
	return m.transition(EventRemoved, func(cur Attachment) (Attachment, error) {
		switch cur.State {
		case StateUploading:
			return cur, ErrUploadInProgress
		case StateAbsent:
			return cur, ErrNothingToRemove
		}
		return Attachment{State: StateAbsent}, nil
	})
}

// transition applies step under the lock and notifies listeners after it is
// released.
func (m *Manager) transition(kind EventKind, step func(Attachment) (Attachment, error)) error {
	m.mu.Lock()
	prev := m.current
	next, err := step(prev)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.current = next
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	ev := Event{Kind: kind, Current: next, Previous: prev}
	for _, l := range listeners {
		l(ev)
	}
	return nil
}
