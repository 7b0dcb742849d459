// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reconcile merges server history into the local cache.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeranaias/querychat-tui/internal/api"
	"github.com/jeranaias/querychat-tui/internal/model"
	"github.com/jeranaias/querychat-tui/internal/session"
	"github.com/jeranaias/querychat-tui/internal/storage"
)

// fakeServer is a minimal chat API for reconciler tests.
type fakeServer struct {
	histories map[string][]model.Message
	chatReply string
	chatFail  int // non-zero: status code to return from /chat
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/db-test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/sessions/ensure", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/history/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/history/"), "/")
		if len(parts) != 2 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		msgs := f.histories[parts[1]]
		if msgs == nil {
			msgs = []model.Message{}
		}
		json.NewEncoder(w).Encode(map[string][]model.Message{"messages": msgs})
	})
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		if f.chatFail != 0 {
			w.WriteHeader(f.chatFail)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"response": f.chatReply})
	})
	return mux
}

func newTestReconciler(t *testing.T, fake *fakeServer) (*Reconciler, *session.Manager) {
	t.Helper()

	store, err := storage.OpenAt(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("OpenAt failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	mgr := session.NewManager(store)
	client := api.NewClientWithConfig(&api.ClientConfig{BaseURL: srv.URL})
	return New(mgr, client), mgr
}

// =============================================================================
// STARTUP TESTS
// =============================================================================

func TestSeedLocal_FreshStart(t *testing.T) {
	r, mgr := newTestReconciler(t, &fakeServer{})

	id, created, err := r.SeedLocal()
	if err != nil {
		t.Fatalf("SeedLocal failed: %v", err)
	}

	if !created {
		t.Error("Fresh start should create a session")
	}
	if !strings.HasPrefix(id, "session_") {
		t.Errorf("Session id = %q, want 'session_' prefix", id)
	}
	if mgr.Active() != id {
		t.Errorf("Active = %q, want %q", mgr.Active(), id)
	}
	if len(mgr.History(id)) != 0 {
		t.Error("New session should have an empty history")
	}
}

func TestSeedLocal_ExistingSessionsSelectFirst(t *testing.T) {
	r, mgr := newTestReconciler(t, &fakeServer{})
	mgr.CreateSession("session_old")
	mgr.CreateSession("session_new") // registry head

	id, created, err := r.SeedLocal()
	if err != nil {
		t.Fatalf("SeedLocal failed: %v", err)
	}

	if created {
		t.Error("Existing registry should not create a session")
	}
	if id != "session_new" || mgr.Active() != "session_new" {
		t.Errorf("Active = %q, want the registry head", mgr.Active())
	}
}

func TestProbe_SetsStatus(t *testing.T) {
	r, mgr := newTestReconciler(t, &fakeServer{})

	if !r.Probe(context.Background()) {
		t.Fatal("Probe against live server should succeed")
	}
	if mgr.APIStatus() != session.StatusConnected {
		t.Errorf("Status = %q, want 'connected'", mgr.APIStatus())
	}
}

func TestProbe_FailureSetsDisconnected(t *testing.T) {
	r, mgr := newTestReconciler(t, &fakeServer{})
	// Break the client by pointing it somewhere dead.
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	r.client = api.NewClientWithConfig(&api.ClientConfig{BaseURL: srv.URL})

	if r.Probe(context.Background()) {
		t.Fatal("Probe against dead server should fail")
	}
	if mgr.APIStatus() != session.StatusDisconnected {
		t.Errorf("Status = %q, want 'disconnected'", mgr.APIStatus())
	}
}

// =============================================================================
// ENSURE AND LOAD TESTS
// =============================================================================

func TestEnsureAndLoad_ServerReplacesCache(t *testing.T) {
	fake := &fakeServer{histories: map[string][]model.Message{
		"session_1": {
			{Sender: model.SenderUser, Text: "server-q"},
			{Sender: model.SenderBot, Text: "server-a"},
		},
	}}
	r, mgr := newTestReconciler(t, fake)

	mgr.CreateSession("session_1")
	mgr.AppendMessage("session_1", model.NewUserMessage("stale cache"))

	err := r.EnsureAndLoad(context.Background(), "session_1", LoadOptions{SelectAfterLoad: true})
	if err != nil {
		t.Fatalf("EnsureAndLoad failed: %v", err)
	}

	history := mgr.History("session_1")
	if len(history) != 2 || history[0].Text != "server-q" {
		t.Errorf("History = %v, want the server result verbatim", history)
	}
	if mgr.Active() != "session_1" {
		t.Error("SelectAfterLoad should activate the session")
	}
}

func TestEnsureAndLoad_EmptyServerKeepsCache(t *testing.T) {
	fake := &fakeServer{histories: map[string][]model.Message{}}
	r, mgr := newTestReconciler(t, fake)

	mgr.CreateSession("session_1")
	mgr.AppendMessage("session_1", model.NewUserMessage("kept-1"))
	mgr.AppendMessage("session_1", model.NewBotMessage("kept-2"))

	if err := r.EnsureAndLoad(context.Background(), "session_1", LoadOptions{}); err != nil {
		t.Fatalf("EnsureAndLoad failed: %v", err)
	}

	history := mgr.History("session_1")
	if len(history) != 2 {
		t.Errorf("History length = %d, want 2 (cache kept)", len(history))
	}
}

func TestEnsureAndLoad_FetchFailureKeepsCache(t *testing.T) {
	r, mgr := newTestReconciler(t, &fakeServer{})

	mgr.CreateSession("session_1")
	for _, text := range []string{"one", "two", "three"} {
		mgr.AppendMessage("session_1", model.NewUserMessage(text))
	}

	// Swap in a client whose history endpoint always fails.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	r.client = api.NewClientWithConfig(&api.ClientConfig{BaseURL: srv.URL})

	if err := r.EnsureAndLoad(context.Background(), "session_1", LoadOptions{}); err != nil {
		t.Fatalf("EnsureAndLoad failed: %v", err)
	}

	history := mgr.History("session_1")
	if len(history) != 3 {
		t.Errorf("History length = %d, want exactly the 3 cached messages", len(history))
	}
}

func TestEnsureAndLoad_ShowCachedFirstActivatesEarly(t *testing.T) {
	r, mgr := newTestReconciler(t, &fakeServer{})
	mgr.CreateSession("session_1")

	r.EnsureAndLoad(context.Background(), "session_1", LoadOptions{ShowCachedFirst: true})

	if mgr.Active() != "session_1" {
		t.Error("ShowCachedFirst should activate the session")
	}
}

// =============================================================================
// CREATE / SELECT TESTS
// =============================================================================

func TestCreateAndSelect_OfflineActivatesLocally(t *testing.T) {
	r, mgr := newTestReconciler(t, &fakeServer{})
	mgr.SetAPIStatus(session.StatusDisconnected)

	if err := r.CreateAndSelect(context.Background(), "session_new"); err != nil {
		t.Fatalf("CreateAndSelect failed: %v", err)
	}

	if mgr.Active() != "session_new" {
		t.Errorf("Active = %q, want 'session_new'", mgr.Active())
	}
	if !mgr.HasSession("session_new") {
		t.Error("Session should be registered")
	}
}

func TestCreateAndSelect_ConnectedReconciles(t *testing.T) {
	fake := &fakeServer{histories: map[string][]model.Message{
		"session_new": {{Sender: model.SenderBot, Text: "from server"}},
	}}
	r, mgr := newTestReconciler(t, fake)
	mgr.SetAPIStatus(session.StatusConnected)

	if err := r.CreateAndSelect(context.Background(), "session_new"); err != nil {
		t.Fatalf("CreateAndSelect failed: %v", err)
	}

	history := mgr.History("session_new")
	if len(history) != 1 || history[0].Text != "from server" {
		t.Errorf("History = %v, want server content", history)
	}
}

func TestSelect_ReconcilesEvenWhenMarkedDisconnected(t *testing.T) {
	// Explicit selection always attempts a fresh sync; the cached status
	// may be stale.
	fake := &fakeServer{histories: map[string][]model.Message{
		"session_1": {{Sender: model.SenderBot, Text: "fresh"}},
	}}
	r, mgr := newTestReconciler(t, fake)
	mgr.CreateSession("session_1")
	mgr.SetAPIStatus(session.StatusDisconnected)

	if err := r.Select(context.Background(), "session_1"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	history := mgr.History("session_1")
	if len(history) != 1 || history[0].Text != "fresh" {
		t.Errorf("History = %v, want the freshly fetched content", history)
	}
}

// =============================================================================
// SEND FLOW TESTS
// =============================================================================

func TestSend_SuccessResolvesPlaceholder(t *testing.T) {
	fake := &fakeServer{chatReply: "hi"}
	r, mgr := newTestReconciler(t, fake)
	mgr.CreateSession("session_1")
	mgr.SetActive("session_1")
	mgr.SetAPIStatus(session.StatusConnected)

	reply, err := r.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if reply != "hi" {
		t.Errorf("Reply = %q, want 'hi'", reply)
	}

	history := mgr.History("session_1")
	if len(history) != 2 {
		t.Fatalf("History length = %d, want 2", len(history))
	}
	if history[0].Sender != model.SenderUser || history[0].Text != "hello" {
		t.Errorf("History[0] = %+v, want the user message", history[0])
	}
	if history[1].Sender != model.SenderBot || history[1].Text != "hi" {
		t.Errorf("History[1] = %+v, want the bot reply", history[1])
	}
	if model.CountPlaceholders(history) != 0 {
		t.Error("Placeholder should be resolved")
	}
	if mgr.Loading() {
		t.Error("Loading should clear after completion")
	}
}

func TestSend_DisconnectedIsRejectedWithoutMutation(t *testing.T) {
	r, mgr := newTestReconciler(t, &fakeServer{})
	mgr.CreateSession("session_1")
	mgr.SetActive("session_1")
	mgr.SetAPIStatus(session.StatusDisconnected)

	_, err := r.Send(context.Background(), "hello")

	if !errors.Is(err, ErrDisconnected) {
		t.Fatalf("err = %v, want ErrDisconnected", err)
	}
	if len(mgr.History("session_1")) != 0 {
		t.Error("Rejected send must not mutate history")
	}
	if mgr.Loading() {
		t.Error("Loading must never activate for a rejected send")
	}
}

func TestSend_BlankInputRejected(t *testing.T) {
	r, mgr := newTestReconciler(t, &fakeServer{})
	mgr.CreateSession("session_1")
	mgr.SetActive("session_1")
	mgr.SetAPIStatus(session.StatusConnected)

	if _, err := r.Send(context.Background(), "   "); !errors.Is(err, ErrBlankInput) {
		t.Errorf("err = %v, want ErrBlankInput", err)
	}
}

func TestSend_NoActiveSessionRejected(t *testing.T) {
	r, mgr := newTestReconciler(t, &fakeServer{})
	mgr.SetAPIStatus(session.StatusConnected)

	if _, err := r.Send(context.Background(), "hello"); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("err = %v, want ErrNoActiveSession", err)
	}
}

func TestBeginSend_SecondSendWhileLoadingRejected(t *testing.T) {
	r, mgr := newTestReconciler(t, &fakeServer{})
	mgr.CreateSession("session_1")
	mgr.SetActive("session_1")
	mgr.SetAPIStatus(session.StatusConnected)

	if _, err := r.BeginSend("first"); err != nil {
		t.Fatalf("BeginSend failed: %v", err)
	}

	if _, err := r.BeginSend("second"); !errors.Is(err, ErrSendInFlight) {
		t.Errorf("err = %v, want ErrSendInFlight", err)
	}
}

func TestSend_ServerErrorResolvesWithErrorText(t *testing.T) {
	fake := &fakeServer{chatFail: http.StatusInternalServerError}
	r, mgr := newTestReconciler(t, fake)
	mgr.CreateSession("session_1")
	mgr.SetActive("session_1")
	mgr.SetAPIStatus(session.StatusConnected)

	reply, err := r.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send should not propagate a fault: %v", err)
	}
	if !strings.Contains(reply, "Server error") {
		t.Errorf("Reply = %q, want the classified server-error text", reply)
	}

	history := mgr.History("session_1")
	if len(history) != 2 || model.CountPlaceholders(history) != 0 {
		t.Errorf("History = %v, want user message plus resolved error message", history)
	}
	// An HTTP 5xx is not a connection failure; status stays connected.
	if mgr.APIStatus() != session.StatusConnected {
		t.Errorf("Status = %q, want 'connected'", mgr.APIStatus())
	}
}

func TestCompleteSend_ConnectionFailureFlipsStatus(t *testing.T) {
	r, mgr := newTestReconciler(t, &fakeServer{})
	mgr.CreateSession("session_1")
	mgr.SetActive("session_1")
	mgr.SetAPIStatus(session.StatusConnected)

	tempID, err := r.BeginSend("hello")
	if err != nil {
		t.Fatalf("BeginSend failed: %v", err)
	}

	if err := r.CompleteSend(tempID, "", api.ErrUnreachable); err != nil {
		t.Fatalf("CompleteSend failed: %v", err)
	}

	if mgr.APIStatus() != session.StatusDisconnected {
		t.Errorf("Status = %q, want 'disconnected'", mgr.APIStatus())
	}
	history := mgr.History("session_1")
	if !strings.Contains(history[len(history)-1].Text, "offline") {
		t.Errorf("Last message = %q, want the offline error text", history[len(history)-1].Text)
	}
}

func TestCompleteSend_CanceledSendKeepsStatusConnected(t *testing.T) {
	r, mgr := newTestReconciler(t, &fakeServer{})
	mgr.CreateSession("session_1")
	mgr.SetActive("session_1")
	mgr.SetAPIStatus(session.StatusConnected)

	tempID, err := r.BeginSend("hello")
	if err != nil {
		t.Fatalf("BeginSend failed: %v", err)
	}

	if err := r.CompleteSend(tempID, "", api.ErrCanceled); err != nil {
		t.Fatalf("CompleteSend failed: %v", err)
	}

	// A user-canceled request says nothing about server health.
	if mgr.APIStatus() != session.StatusConnected {
		t.Errorf("Status = %q, want 'connected'", mgr.APIStatus())
	}
	history := mgr.History("session_1")
	if got := history[len(history)-1].Text; got != "Request canceled." {
		t.Errorf("Last message = %q, want 'Request canceled.'", got)
	}
	if model.CountPlaceholders(history) != 0 {
		t.Error("placeholder should be resolved after a canceled send")
	}
	if mgr.Loading() {
		t.Error("loading flag should clear after a canceled send")
	}
}

func TestCompleteSend_PlaceholderCountDropsByOne(t *testing.T) {
	fake := &fakeServer{chatReply: "done"}
	r, mgr := newTestReconciler(t, fake)
	mgr.CreateSession("session_1")
	mgr.SetActive("session_1")
	mgr.SetAPIStatus(session.StatusConnected)

	tempID, err := r.BeginSend("hello")
	if err != nil {
		t.Fatalf("BeginSend failed: %v", err)
	}
	before := model.CountPlaceholders(mgr.History("session_1"))

	if err := r.CompleteSend(tempID, "done", nil); err != nil {
		t.Fatalf("CompleteSend failed: %v", err)
	}
	after := model.CountPlaceholders(mgr.History("session_1"))

	if after != before-1 {
		t.Errorf("Placeholders went %d -> %d, want a drop of exactly one", before, after)
	}
}

func TestCompleteSend_AppendsWhenPlaceholderGone(t *testing.T) {
	r, mgr := newTestReconciler(t, &fakeServer{})
	mgr.CreateSession("session_1")
	mgr.SetActive("session_1")
	mgr.SetAPIStatus(session.StatusConnected)

	tempID, err := r.BeginSend("hello")
	if err != nil {
		t.Fatalf("BeginSend failed: %v", err)
	}

	// A reconciliation replaces the history while the send is in flight,
	// removing the placeholder.
	mgr.ReplaceHistory("session_1", []model.Message{
		model.NewUserMessage("server says this instead"),
	})

	if err := r.CompleteSend(tempID, "late reply", nil); err != nil {
		t.Fatalf("CompleteSend failed: %v", err)
	}

	history := mgr.History("session_1")
	last := history[len(history)-1]
	if last.Text != "late reply" || last.Sender != model.SenderBot {
		t.Errorf("Last message = %+v, want the late reply appended", last)
	}
}

func TestCompleteSend_UnknownCorrelationIDIsNoop(t *testing.T) {
	r, mgr := newTestReconciler(t, &fakeServer{})
	mgr.CreateSession("session_1")
	mgr.AppendMessage("session_1", model.NewUserMessage("x"))

	if err := r.CompleteSend("pending_unknown", "y", nil); err != nil {
		t.Fatalf("CompleteSend failed: %v", err)
	}

	if len(mgr.History("session_1")) != 1 {
		t.Error("Unknown correlation id must not mutate history")
	}
}

// =============================================================================
// FULL STARTUP TESTS
// =============================================================================

func TestInitialize_FreshStartConnected(t *testing.T) {
	r, mgr := newTestReconciler(t, &fakeServer{})

	id, err := r.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if mgr.APIStatus() != session.StatusConnected {
		t.Errorf("Status = %q, want 'connected'", mgr.APIStatus())
	}
	if mgr.Active() != id {
		t.Errorf("Active = %q, want %q", mgr.Active(), id)
	}
	if len(mgr.History(id)) != 0 {
		t.Error("Fresh session should be empty")
	}
}

func TestInitialize_OfflineUsesCacheOnly(t *testing.T) {
	store, err := storage.OpenAt(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("OpenAt failed: %v", err)
	}
	defer store.Close()
	store.SaveSessions([]string{"session_1"})
	store.SaveConversations(map[string][]model.Message{
		"session_1": {model.NewUserMessage("cached")},
	})

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // dead server

	mgr := session.NewManager(store)
	r := New(mgr, api.NewClientWithConfig(&api.ClientConfig{BaseURL: srv.URL}))

	id, err := r.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if mgr.APIStatus() != session.StatusDisconnected {
		t.Errorf("Status = %q, want 'disconnected'", mgr.APIStatus())
	}
	if id != "session_1" || len(mgr.History("session_1")) != 1 {
		t.Error("Cached session should be selected untouched")
	}
}
