// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the conversational session controller.
//
// The Controller owns the conversation store and the attachment manager.
// It turns a user submission into a single-flight turn, routes it to the
// general or the document-grounded client, applies streamed chunks to the
// in-flight message and surfaces failures.
//
// # Key Types
//
//   - Controller: the turn state machine and owner of session state
//   - View: immutable snapshot delivered to observers
//   - Observer: receives a View after every change
//   - Banner: persistent configuration problem with a remedy
//
// # Turn States
//
//	idle -> awaiting_response -> streaming -> settled -> idle
//	awaiting_response|streaming -> failed -> idle
//
// # Usage
//
//	ctrl := session.New(session.Config{Chat: chat, Grounded: rag, Logger: log})
//	unsubscribe := ctrl.Subscribe(session.ObserverFunc(func(v session.View) {
//	    render(v)
//	}))
//	defer unsubscribe()
//
//	if err := ctrl.Submit(ctx, "What is 2+2?"); errors.Is(err, session.ErrBusy) {
//	    // a turn is already in progress
//	}
//
// Submit blocks until the turn settles, so interactive hosts run it off
// their UI loop. Observers are called synchronously and must not call
// Submit, Attach or Detach from inside the callback.
//
// # Stale Turns
//
// Attaching or removing a document resets the conversation. A turn that is
// still streaming at that point is cancelled and marked stale: its late
// chunks fail the store's in-flight check and are dropped.
package session
