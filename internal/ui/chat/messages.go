// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/jeranaias/studymate/internal/session"

// SessionMsg carries a controller snapshot into the update loop.
type SessionMsg struct {
	View session.View
}

// submitDoneMsg reports that a turn settled.
type submitDoneMsg struct {
	err error
}

// attachDoneMsg reports the end of an upload.
type attachDoneMsg struct {
	filename string
	err      error
}

// detachDoneMsg reports the end of a detach.
type detachDoneMsg struct {
	err error
}

// copyDoneMsg reports a clipboard write.
type copyDoneMsg struct {
	err error
}

// statusMsg replaces the transient status line.
type statusMsg string
