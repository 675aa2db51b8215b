// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversation turns.
//
// # Key Types
//
//   - Message: one turn with role, text, status, citations and creation time
//   - Citation: a page locator and supporting excerpt from a grounded answer
//   - Role: user or assistant
//   - Status: complete, in_flight or errored
//   - HistoryTurn: the role/content pair sent to transports
//
// # Usage
//
//	msg := model.NewUserMessage("What is 2+2?")
//	reply := model.NewPlaceholder()
//	fmt.Println(reply.Status) // in_flight
//
// Message values are copied out of the conversation store, so a Message held
// by a caller never changes underneath it.
package model
