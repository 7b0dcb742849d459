// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the client-side application state.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/querychat-tui/internal/model"
	"github.com/jeranaias/querychat-tui/internal/storage"
	"github.com/jeranaias/querychat-tui/internal/util"
)

// =============================================================================
// API STATUS
// =============================================================================

// APIStatus tracks chat API connectivity. Sends are only attempted while
// connected.
type APIStatus string

const (
	StatusChecking     APIStatus = "checking"
	StatusConnected    APIStatus = "connected"
	StatusDisconnected APIStatus = "disconnected"
)

// =============================================================================
// PENDING SENDS
// =============================================================================

// PendingSend records an in-flight chat request. The correlation id ties it
// to the placeholder message it will resolve; the session id pins the
// resolution target even if the user navigates away meanwhile.
type PendingSend struct {
	TempID    string
	SessionID string
	Query     string
	StartedAt time.Time
}

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager tracks all client-side chat state. It is safe for concurrent use;
// network calls run off the UI loop and their completions mutate through
// here.
type Manager struct {
	mu sync.Mutex

	store *storage.Store

	// Identity
	userID string

	// Registry and histories. Invariant: every id in sessions has an entry
	// in convs.
	sessions []string
	convs    map[string][]model.Message
	active   string

	// Send gating
	apiStatus APIStatus
	loading   bool

	// In-flight sends by correlation id
	pending map[string]PendingSend
}

// NewManager seeds a manager from the store. A missing user identity is
// generated and persisted immediately; it never changes afterwards.
func NewManager(store *storage.Store) *Manager {
	userID, sessions, convs := store.Load()

	if userID == "" {
		userID = uuid.NewString()
		store.SaveUserID(userID)
	}

	// Repair the registry/history invariant for state written by older
	// builds or truncated saves.
	for _, id := range sessions {
		if _, ok := convs[id]; !ok {
			convs[id] = []model.Message{}
		}
	}

	return &Manager{
		store:     store,
		userID:    userID,
		sessions:  sessions,
		convs:     convs,
		apiStatus: StatusChecking,
		pending:   make(map[string]PendingSend),
	}
}

// NewSessionID creates a time-derived session identifier.
func NewSessionID() string {
	return "session_" + util.Int64ToString(time.Now().UnixMilli())
}

// =============================================================================
// ACCESSORS
// =============================================================================

// UserID returns the durable user identity.
func (m *Manager) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

// Sessions returns a copy of the ordered session registry.
func (m *Manager) Sessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sessions))
	copy(out, m.sessions)
	return out
}

// Active returns the active session id, or "" when none is selected.
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// History returns a copy of a session's history. Unknown ids yield an
// empty history.
func (m *Manager) History(id string) []model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.CloneHistory(m.convs[id])
}

// HasSession reports whether id is in the registry.
func (m *Manager) HasSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexOf(id) >= 0
}

// APIStatus returns the current connectivity status.
func (m *Manager) APIStatus() APIStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apiStatus
}

// Loading reports whether a send is in flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// =============================================================================
// STATE TRANSITIONS
// =============================================================================

// SetActive marks a session as the active one.
func (m *Manager) SetActive(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = id
}

// SetAPIStatus updates connectivity status.
func (m *Manager) SetAPIStatus(status APIStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiStatus = status
}

// SetLoading updates the loading flag.
func (m *Manager) SetLoading(loading bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = loading
}

// CreateSession inserts id at the front of the registry and ensures a
// history entry exists. Creating an id that is already present leaves the
// registry unchanged. Both structures are persisted.
func (m *Manager) CreateSession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indexOf(id) < 0 {
		m.sessions = append([]string{id}, m.sessions...)
	}
	if _, ok := m.convs[id]; !ok {
		m.convs[id] = []model.Message{}
	}

	if err := m.store.SaveSessions(m.sessions); err != nil {
		return err
	}
	return m.store.SaveConversations(m.convs)
}

// DeleteSession removes id from the registry and drops its history. If the
// deleted session was active, the new active session is the new head of the
// registry, or none if the registry is empty.
func (m *Manager) DeleteSession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if idx := m.indexOf(id); idx >= 0 {
		m.sessions = append(m.sessions[:idx], m.sessions[idx+1:]...)
	}
	delete(m.convs, id)

	if m.active == id {
		if len(m.sessions) > 0 {
			m.active = m.sessions[0]
		} else {
			m.active = ""
		}
	}

	if err := m.store.SaveSessions(m.sessions); err != nil {
		return err
	}
	return m.store.SaveConversations(m.convs)
}

// ReplaceHistory swaps a session's entire history and persists the map.
// Used when a server fetch is authoritative.
func (m *Manager) ReplaceHistory(id string, history []model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.convs[id] = model.CloneHistory(history)
	if m.convs[id] == nil {
		m.convs[id] = []model.Message{}
	}
	return m.store.SaveConversations(m.convs)
}

// AppendMessage appends to a session's history and persists the map.
func (m *Manager) AppendMessage(id string, msg model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.convs[id] = append(m.convs[id], msg)
	return m.store.SaveConversations(m.convs)
}

// =============================================================================
// PENDING SENDS
// =============================================================================

// RegisterPending records an in-flight send under its correlation id.
func (m *Manager) RegisterPending(p PendingSend) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[p.TempID] = p
}

// TakePending removes and returns the pending send for a correlation id.
func (m *Manager) TakePending(tempID string) (PendingSend, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[tempID]
	if ok {
		delete(m.pending, tempID)
	}
	return p, ok
}

// PendingCount returns the number of in-flight sends.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// =============================================================================
// HELPERS
// =============================================================================

// indexOf returns the registry index of id, or -1. Caller holds the lock.
func (m *Manager) indexOf(id string) int {
	for i, s := range m.sessions {
		if s == id {
			return i
		}
	}
	return -1
}
