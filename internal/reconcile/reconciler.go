// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reconcile merges server history into the local cache.
package reconcile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jeranaias/querychat-tui/internal/api"
	"github.com/jeranaias/querychat-tui/internal/model"
	"github.com/jeranaias/querychat-tui/internal/session"
)

// =============================================================================
// ERRORS
// =============================================================================

// Send preconditions. These are user-facing warnings, not faults: the UI
// surfaces them and the history is left untouched.
var (
	ErrBlankInput      = errors.New("message is empty")
	ErrNoActiveSession = errors.New("no session selected")
	ErrDisconnected    = errors.New("chat API is not reachable; message not sent")
	ErrSendInFlight    = errors.New("a message is already in flight")
)

// =============================================================================
// RECONCILER
// =============================================================================

// LoadOptions controls the ensure-and-load sequence.
type LoadOptions struct {
	// SelectAfterLoad marks the session active once the merge completes.
	SelectAfterLoad bool
	// ShowCachedFirst marks the session active before the network round
	// trip, so cached messages render while the fetch is in flight.
	ShowCachedFirst bool
}

// Reconciler coordinates the session manager and the API client.
type Reconciler struct {
	mgr    *session.Manager
	client *api.Client
}

// New creates a reconciler over a manager and an API client.
func New(mgr *session.Manager, client *api.Client) *Reconciler {
	return &Reconciler{mgr: mgr, client: client}
}

// Client returns the API client used for server round trips.
func (r *Reconciler) Client() *api.Client {
	return r.client
}

// Manager returns the session manager the reconciler mutates.
func (r *Reconciler) Manager() *session.Manager {
	return r.mgr
}

// =============================================================================
// STARTUP
// =============================================================================

// Probe checks connectivity and records the result. Returns true when the
// API is reachable.
func (r *Reconciler) Probe(ctx context.Context) bool {
	if r.client.ProbeConnectivity(ctx) {
		r.mgr.SetAPIStatus(session.StatusConnected)
		return true
	}
	r.mgr.SetAPIStatus(session.StatusDisconnected)
	return false
}

// SeedLocal prepares the local state without touching the network: if the
// registry is empty a fresh session is created and persisted, otherwise the
// first (most recent) entry becomes active. Returns the active session id
// and whether it was newly created.
func (r *Reconciler) SeedLocal() (string, bool, error) {
	sessions := r.mgr.Sessions()
	if len(sessions) > 0 {
		first := sessions[0]
		r.mgr.SetActive(first)
		return first, false, nil
	}

	id := session.NewSessionID()
	if err := r.mgr.CreateSession(id); err != nil {
		return "", false, err
	}
	r.mgr.SetActive(id)
	return id, true, nil
}

// Initialize runs the full startup sequence synchronously: probe, seed,
// and - when connected - reconcile the active session against the server.
// The TUI splits these steps across commands instead; this path serves the
// plain-terminal mode.
func (r *Reconciler) Initialize(ctx context.Context) (string, error) {
	connected := r.Probe(ctx)

	id, created, err := r.SeedLocal()
	if err != nil {
		return "", err
	}

	if connected {
		opts := LoadOptions{SelectAfterLoad: true, ShowCachedFirst: !created}
		if err := r.EnsureAndLoad(ctx, id, opts); err != nil {
			return id, err
		}
	}
	return id, nil
}

// =============================================================================
// ENSURE AND LOAD
// =============================================================================

// EnsureAndLoad reconciles one session against the server: best-effort
// ensure, fetch, merge, persist, select. The ensure result is ignored for
// flow purposes; a fetch failure leaves the cache in place.
func (r *Reconciler) EnsureAndLoad(ctx context.Context, id string, opts LoadOptions) error {
	if opts.ShowCachedFirst {
		r.mgr.SetActive(id)
	}

	r.client.EnsureSession(ctx, r.mgr.UserID(), id)

	server, fetchErr := r.client.FetchHistory(ctx, r.mgr.UserID(), id)

	// Merge against the history as it is now, not as it was before the
	// fetch: a send may have appended meanwhile.
	merged := MergeHistory(r.mgr.History(id), server, fetchErr == nil)
	if err := r.mgr.ReplaceHistory(id, merged); err != nil {
		return err
	}

	if opts.SelectAfterLoad {
		r.mgr.SetActive(id)
	}
	return nil
}

// CreateAndSelect registers a new session and brings it in sync. The
// remote round trip only happens while connected; offline creation just
// activates the session locally.
func (r *Reconciler) CreateAndSelect(ctx context.Context, id string) error {
	if err := r.mgr.CreateSession(id); err != nil {
		return err
	}

	if r.mgr.APIStatus() == session.StatusConnected {
		return r.EnsureAndLoad(ctx, id, LoadOptions{SelectAfterLoad: true, ShowCachedFirst: true})
	}

	r.mgr.SetActive(id)
	return nil
}

// Select activates a session and reconciles it unconditionally: explicit
// user selection always attempts a fresh server sync, regardless of the
// cached connectivity status.
func (r *Reconciler) Select(ctx context.Context, id string) error {
	return r.EnsureAndLoad(ctx, id, LoadOptions{SelectAfterLoad: true, ShowCachedFirst: true})
}

// Delete removes a session; active falls back to the registry head.
func (r *Reconciler) Delete(id string) error {
	return r.mgr.DeleteSession(id)
}

// =============================================================================
// SEND FLOW
// =============================================================================

// BeginSend validates a send, appends the optimistic user message and the
// thinking placeholder, and registers the pending request. Returns the
// correlation id the caller must resolve with CompleteSend. The loading
// flag is set until then; a second send while one is in flight is
// rejected.
func (r *Reconciler) BeginSend(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrBlankInput
	}

	active := r.mgr.Active()
	if active == "" {
		return "", ErrNoActiveSession
	}
	if r.mgr.APIStatus() == session.StatusDisconnected {
		return "", ErrDisconnected
	}
	if r.mgr.Loading() {
		return "", ErrSendInFlight
	}

	if err := r.mgr.AppendMessage(active, model.NewUserMessage(text)); err != nil {
		return "", err
	}

	placeholder := model.NewPendingMessage()
	if err := r.mgr.AppendMessage(active, placeholder); err != nil {
		return "", err
	}

	r.mgr.RegisterPending(session.PendingSend{
		TempID:    placeholder.TempID,
		SessionID: active,
		Query:     text,
		StartedAt: time.Now(),
	})
	r.mgr.SetLoading(true)

	return placeholder.TempID, nil
}

// CompleteSend resolves the placeholder for a finished request. On success
// the reply text becomes the bot message; on failure the classified
// user-facing error text does, and a connection-level failure flips the
// API status to disconnected. Resolution works against the session's
// history as it is now - the session may have been reconciled or switched
// since the send began. The loading flag clears regardless of outcome.
func (r *Reconciler) CompleteSend(tempID, replyText string, sendErr error) error {
	defer r.mgr.SetLoading(false)

	pending, ok := r.mgr.TakePending(tempID)
	if !ok {
		return nil
	}

	var resolved model.Message
	if sendErr != nil {
		if api.IsConnectionError(sendErr) {
			r.mgr.SetAPIStatus(session.StatusDisconnected)
		}
		resolved = model.NewBotMessage(api.UserMessage(sendErr))
	} else {
		resolved = model.NewBotMessage(replyText)
	}

	history, _ := ResolvePlaceholder(r.mgr.History(pending.SessionID), tempID, resolved)
	return r.mgr.ReplaceHistory(pending.SessionID, history)
}

// Send runs the whole send flow synchronously: validation, optimistic
// append, best-effort ensure, chat call, resolution. Used by the
// plain-terminal mode; the TUI drives BeginSend/CompleteSend across
// commands instead. Returns the resolved bot text.
func (r *Reconciler) Send(ctx context.Context, text string) (string, error) {
	tempID, err := r.BeginSend(text)
	if err != nil {
		return "", err
	}

	pendingSession := r.mgr.Active()
	r.client.EnsureSession(ctx, r.mgr.UserID(), pendingSession)

	reply, sendErr := r.client.SendChat(ctx, r.mgr.UserID(), pendingSession, text)
	if err := r.CompleteSend(tempID, reply, sendErr); err != nil {
		return "", err
	}

	if sendErr != nil {
		return api.UserMessage(sendErr), nil
	}
	return reply, nil
}
