// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the Bubble Tea front end of a study session.
//
// The Model never mutates conversation state itself. It forwards user intent
// (submit, cancel, attach, detach) to a session.Controller through tea.Cmds
// and repaints from the View snapshots the controller publishes. Run bridges
// controller notifications into the program with tea.Program.Send.
//
// # Keys
//
//   - Enter: send the input, or run a slash command
//   - Esc: cancel the answer being streamed
//   - F1-F3: quick actions while the conversation is empty
//   - Ctrl+Y: copy the last answer
//   - Ctrl+B: dismiss the configuration banner
//   - PgUp/PgDn: scroll
//   - Ctrl+C: quit
//
// # Slash commands
//
//   - /attach <file.pdf>, /detach, /copy, /dismiss, /help, /quit
package chat
