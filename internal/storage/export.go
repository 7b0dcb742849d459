// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides local persistence for querychat sessions.
package storage

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jeranaias/querychat-tui/internal/model"
	"github.com/jeranaias/querychat-tui/internal/util"
)

// =============================================================================
// SESSION EXPORT
// =============================================================================

// FormatMarkdown renders a session transcript as Markdown. Unresolved
// placeholders are skipped; they carry no content worth exporting.
func FormatMarkdown(sessionID string, history []model.Message) string {
	var sb strings.Builder
	sb.WriteString("# Session " + sessionID + "\n\n")
	sb.WriteString("Exported: " + time.Now().Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range history {
		if msg.IsPlaceholder() {
			continue
		}
		sb.WriteString("**" + msg.Sender.DisplayName() + "**:\n\n")
		sb.WriteString(msg.Text)
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}

// ExportMarkdown writes a session transcript to path as Markdown.
func ExportMarkdown(path, sessionID string, history []model.Message) error {
	return util.AtomicWriteFile(path, []byte(FormatMarkdown(sessionID, history)), 0644)
}

// ExportJSON writes a session transcript to path as pretty-printed JSON.
func ExportJSON(path, sessionID string, history []model.Message) error {
	final := make([]model.Message, 0, len(history))
	for _, msg := range history {
		if msg.IsPlaceholder() {
			continue
		}
		final = append(final, msg)
	}

	out := struct {
		SessionID string          `json:"session_id"`
		Messages  []model.Message `json:"messages"`
	}{SessionID: sessionID, Messages: final}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(path, data, 0644)
}
