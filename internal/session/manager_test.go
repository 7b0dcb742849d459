// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the client-side application state.
package session

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeranaias/querychat-tui/internal/model"
	"github.com/jeranaias/querychat-tui/internal/storage"
)

func newTestManager(t *testing.T) (*Manager, *storage.Store) {
	t.Helper()
	store, err := storage.OpenAt(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("OpenAt failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewManager(store), store
}

// =============================================================================
// IDENTITY TESTS
// =============================================================================

func TestNewManager_GeneratesUserID(t *testing.T) {
	mgr, store := newTestManager(t)

	userID := mgr.UserID()
	if userID == "" {
		t.Fatal("Expected a generated user id")
	}

	// The id must be persisted immediately.
	persisted, _, _ := store.Load()
	if persisted != userID {
		t.Errorf("Persisted user id = %q, want %q", persisted, userID)
	}
}

func TestNewManager_KeepsExistingUserID(t *testing.T) {
	store, err := storage.OpenAt(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("OpenAt failed: %v", err)
	}
	defer store.Close()
	store.SaveUserID("existing-id")

	mgr := NewManager(store)
	if mgr.UserID() != "existing-id" {
		t.Errorf("UserID = %q, want 'existing-id'", mgr.UserID())
	}
}

func TestNewManager_RepairsMissingHistories(t *testing.T) {
	store, err := storage.OpenAt(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("OpenAt failed: %v", err)
	}
	defer store.Close()
	store.SaveSessions([]string{"session_1"})
	// No conversations saved: the registry invariant is violated on disk.

	mgr := NewManager(store)
	if mgr.History("session_1") == nil {
		t.Error("Expected an empty history entry for session_1")
	}
}

func TestNewSessionID(t *testing.T) {
	id := NewSessionID()
	if !strings.HasPrefix(id, "session_") {
		t.Errorf("Session id = %q, want 'session_' prefix", id)
	}
}

// =============================================================================
// CREATE TESTS
// =============================================================================

func TestCreateSession_InsertsAtFront(t *testing.T) {
	mgr, _ := newTestManager(t)

	mgr.CreateSession("session_1")
	mgr.CreateSession("session_2")

	sessions := mgr.Sessions()
	if len(sessions) != 2 || sessions[0] != "session_2" || sessions[1] != "session_1" {
		t.Errorf("Sessions = %v, want [session_2 session_1]", sessions)
	}
}

func TestCreateSession_Idempotent(t *testing.T) {
	mgr, _ := newTestManager(t)

	mgr.CreateSession("session_1")
	mgr.AppendMessage("session_1", model.NewUserMessage("kept"))
	mgr.CreateSession("session_1")

	sessions := mgr.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("Sessions = %v, want exactly one occurrence", sessions)
	}
	if len(mgr.History("session_1")) != 1 {
		t.Error("Re-creating an existing session must not clear its history")
	}
}

func TestCreateSession_Persists(t *testing.T) {
	mgr, store := newTestManager(t)

	mgr.CreateSession("session_1")

	_, sessions, convs := store.Load()
	if len(sessions) != 1 || sessions[0] != "session_1" {
		t.Errorf("Persisted sessions = %v", sessions)
	}
	if _, ok := convs["session_1"]; !ok {
		t.Error("Persisted conversations missing session_1 entry")
	}
}

// =============================================================================
// DELETE TESTS
// =============================================================================

func TestDeleteSession_RemovesBoth(t *testing.T) {
	mgr, store := newTestManager(t)

	mgr.CreateSession("session_1")
	mgr.AppendMessage("session_1", model.NewUserMessage("x"))
	mgr.DeleteSession("session_1")

	if mgr.HasSession("session_1") {
		t.Error("Registry still contains deleted session")
	}
	_, sessions, convs := store.Load()
	if len(sessions) != 0 {
		t.Errorf("Persisted sessions = %v, want empty", sessions)
	}
	if _, ok := convs["session_1"]; ok {
		t.Error("Persisted conversations still contain deleted session")
	}
}

func TestDeleteSession_ActiveFallsBackToHead(t *testing.T) {
	mgr, _ := newTestManager(t)

	mgr.CreateSession("session_1")
	mgr.CreateSession("session_2") // registry: [session_2, session_1]
	mgr.SetActive("session_2")

	mgr.DeleteSession("session_2")

	if mgr.Active() != "session_1" {
		t.Errorf("Active = %q, want 'session_1'", mgr.Active())
	}
}

func TestDeleteSession_LastSessionClearsActive(t *testing.T) {
	mgr, _ := newTestManager(t)

	mgr.CreateSession("session_1")
	mgr.SetActive("session_1")
	mgr.DeleteSession("session_1")

	if mgr.Active() != "" {
		t.Errorf("Active = %q, want empty", mgr.Active())
	}
}

func TestDeleteSession_InactiveKeepsActive(t *testing.T) {
	mgr, _ := newTestManager(t)

	mgr.CreateSession("session_1")
	mgr.CreateSession("session_2")
	mgr.SetActive("session_2")

	mgr.DeleteSession("session_1")

	if mgr.Active() != "session_2" {
		t.Errorf("Active = %q, want 'session_2'", mgr.Active())
	}
}

// =============================================================================
// HISTORY TESTS
// =============================================================================

func TestReplaceHistory(t *testing.T) {
	mgr, store := newTestManager(t)
	mgr.CreateSession("session_1")
	mgr.AppendMessage("session_1", model.NewUserMessage("old"))

	mgr.ReplaceHistory("session_1", []model.Message{
		model.NewUserMessage("server-a"),
		model.NewBotMessage("server-b"),
	})

	history := mgr.History("session_1")
	if len(history) != 2 || history[0].Text != "server-a" {
		t.Errorf("History = %v", history)
	}

	_, _, convs := store.Load()
	if len(convs["session_1"]) != 2 {
		t.Error("Replacement not persisted")
	}
}

func TestHistory_ReturnsCopy(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.CreateSession("session_1")
	mgr.AppendMessage("session_1", model.NewUserMessage("a"))

	history := mgr.History("session_1")
	history[0].Text = "mutated"

	if mgr.History("session_1")[0].Text != "a" {
		t.Error("History must return a copy, not the live slice")
	}
}

// =============================================================================
// PENDING SEND TESTS
// =============================================================================

func TestPendingSends(t *testing.T) {
	mgr, _ := newTestManager(t)

	mgr.RegisterPending(PendingSend{TempID: "pending_1", SessionID: "session_1", Query: "q"})
	if mgr.PendingCount() != 1 {
		t.Errorf("PendingCount = %d, want 1", mgr.PendingCount())
	}

	p, ok := mgr.TakePending("pending_1")
	if !ok || p.SessionID != "session_1" {
		t.Errorf("TakePending = %+v, %v", p, ok)
	}

	if _, ok := mgr.TakePending("pending_1"); ok {
		t.Error("TakePending should be a one-shot removal")
	}
}

// =============================================================================
// STATUS TESTS
// =============================================================================

func TestStatusTransitions(t *testing.T) {
	mgr, _ := newTestManager(t)

	if mgr.APIStatus() != StatusChecking {
		t.Errorf("Initial status = %q, want 'checking'", mgr.APIStatus())
	}

	mgr.SetAPIStatus(StatusConnected)
	if mgr.APIStatus() != StatusConnected {
		t.Errorf("Status = %q, want 'connected'", mgr.APIStatus())
	}

	mgr.SetLoading(true)
	if !mgr.Loading() {
		t.Error("Loading should be set")
	}
}
