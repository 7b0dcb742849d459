// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat messages and history.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SENDER TYPE
// =============================================================================

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// String returns the string representation of the sender.
func (s Sender) String() string {
	return string(s)
}

// DisplayName returns a human-readable name for the sender.
func (s Sender) DisplayName() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderBot:
		return "Agent"
	default:
		return string(s)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a session's history.
//
// Temp marks a transient "thinking" placeholder awaiting the server reply.
// TempID correlates the placeholder with the in-flight request that will
// resolve it. The server history format carries only sender and text.
type Message struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Temp      bool      `json:"temp,omitempty"`
	TempID    string    `json:"temp_id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// NewUserMessage creates a final user message.
func NewUserMessage(text string) Message {
	return Message{
		Sender:    SenderUser,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewBotMessage creates a final bot message.
func NewBotMessage(text string) Message {
	return Message{
		Sender:    SenderBot,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewPendingMessage creates a placeholder bot message with a fresh
// correlation id. The placeholder is replaced in place once the request it
// correlates with completes.
func NewPendingMessage() Message {
	return Message{
		Sender:    SenderBot,
		Temp:      true,
		TempID:    "pending_" + uuid.NewString(),
		Timestamp: time.Now(),
	}
}

// IsPlaceholder reports whether the message is an unresolved placeholder.
func (m Message) IsPlaceholder() bool {
	return m.Temp && m.TempID != ""
}

// Preview returns a truncated preview of the message text.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	runes := []rune(m.Text)
	if len(runes) <= maxLen {
		return m.Text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// =============================================================================
// HISTORY HELPERS
// =============================================================================

// CloneHistory returns a copy of a message slice. Histories are shared
// between the state owner and the UI; mutations must go through a copy.
func CloneHistory(history []Message) []Message {
	if history == nil {
		return nil
	}
	out := make([]Message, len(history))
	copy(out, history)
	return out
}

// CountPlaceholders returns the number of unresolved placeholders in a
// history.
func CountPlaceholders(history []Message) int {
	n := 0
	for _, m := range history {
		if m.IsPlaceholder() {
			n++
		}
	}
	return n
}

// FirstUserText returns the text of the first user message, or "" if the
// history has none. Used for session previews in the sidebar.
func FirstUserText(history []Message) string {
	for _, m := range history {
		if m.Sender == SenderUser && m.Text != "" {
			return m.Text
		}
	}
	return ""
}
