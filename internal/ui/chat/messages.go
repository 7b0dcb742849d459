// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file defines all Bubble Tea message types used by the chat
// interface. Messages are organized into the following categories:
//   - Connectivity: probe results and status changes
//   - Sessions: load, create, and switch results
//   - Send flow: chat replies correlated by placeholder id
//   - Export: conversation export results
//   - Config: reloads pushed by the file watcher
//   - Errors: error display and dismissal
//
// All message types follow Bubble Tea conventions and are immutable.

package chat

import (
	"time"

	"github.com/jeranaias/querychat-tui/internal/config"
)

// =============================================================================
// CONNECTIVITY MESSAGES
// =============================================================================

// ProbeResultMsg reports the outcome of a connectivity probe.
type ProbeResultMsg struct {
	Connected bool
}

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// SessionLoadedMsg signals that a session finished reconciling against
// the server (or failed to; the cache stays in place either way).
type SessionLoadedMsg struct {
	SessionID string
	Err       error
}

// SessionCreatedMsg confirms a new session was registered and selected.
type SessionCreatedMsg struct {
	SessionID string
	Err       error
}

// =============================================================================
// SEND FLOW MESSAGES
// =============================================================================

// ChatReplyMsg delivers the outcome of a chat send. TempID correlates
// the reply with the thinking placeholder appended at send time.
type ChatReplyMsg struct {
	TempID string
	Reply  string
	Err    error
}

// =============================================================================
// EXPORT MESSAGES
// =============================================================================

// ExportCompleteMsg confirms an export operation.
type ExportCompleteMsg struct {
	Path string
	Err  error
}

// =============================================================================
// CONFIG MESSAGES
// =============================================================================

// ConfigReloadedMsg delivers a freshly validated configuration pushed by
// the file watcher while the program is running.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// =============================================================================
// ERROR MESSAGES
// =============================================================================

// ErrorMsg displays an error to the user.
type ErrorMsg struct {
	Title   string
	Message string
}

// ErrorDismissMsg dismisses the current error.
type ErrorDismissMsg struct{}

// =============================================================================
// STATUS MESSAGES
// =============================================================================

// StatusExpireMsg clears a temporary status bar message.
type StatusExpireMsg struct {
	SetAt time.Time
}
