// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file contains the Bubble Tea commands that perform server round
// trips. Each command captures what it needs before the closure runs so
// it never touches the model from another goroutine.

package chat

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/querychat-tui/internal/reconcile"
	"github.com/jeranaias/querychat-tui/internal/storage"
)

// probeCmd checks server connectivity and reports the result.
func probeCmd(rec *reconcile.Reconciler) tea.Cmd {
	return func() tea.Msg {
		return ProbeResultMsg{Connected: rec.Probe(context.Background())}
	}
}

// loadSessionCmd reconciles one session against the server.
func loadSessionCmd(rec *reconcile.Reconciler, id string, opts reconcile.LoadOptions) tea.Cmd {
	return func() tea.Msg {
		err := rec.EnsureAndLoad(context.Background(), id, opts)
		return SessionLoadedMsg{SessionID: id, Err: err}
	}
}

// createSessionCmd registers a new session and brings it in sync.
func createSessionCmd(rec *reconcile.Reconciler, id string) tea.Cmd {
	return func() tea.Msg {
		err := rec.CreateAndSelect(context.Background(), id)
		return SessionCreatedMsg{SessionID: id, Err: err}
	}
}

// sendChatCmd performs the chat round trip for an already-registered
// send. The placeholder was appended by BeginSend before this command
// ran; the reply resolves it via CompleteSend when the message lands.
func sendChatCmd(rec *reconcile.Reconciler, tempID, sessionID, query string) tea.Cmd {
	client := rec.Client()
	mgr := rec.Manager()
	return func() tea.Msg {
		ctx := context.Background()
		client.EnsureSession(ctx, mgr.UserID(), sessionID)
		reply, err := client.SendChat(ctx, mgr.UserID(), sessionID, query)
		return ChatReplyMsg{TempID: tempID, Reply: reply, Err: err}
	}
}

// exportCmd writes the active conversation to a markdown file.
func exportCmd(rec *reconcile.Reconciler, dir string) tea.Cmd {
	mgr := rec.Manager()
	return func() tea.Msg {
		active := mgr.Active()
		if active == "" {
			return ExportCompleteMsg{Err: fmt.Errorf("no active session")}
		}
		path := fmt.Sprintf("%s_%s.md", active, time.Now().Format("20060102_150405"))
		if dir != "" {
			path = dir + "/" + path
		}
		err := storage.ExportMarkdown(path, active, mgr.History(active))
		return ExportCompleteMsg{Path: path, Err: err}
	}
}

// statusExpireCmd clears a temporary status message after a delay.
func statusExpireCmd(setAt time.Time) tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return StatusExpireMsg{SetAt: setAt}
	})
}
