// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides local persistence for querychat sessions.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/querychat-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrStoreClosed = errors.New("store is closed")
)

// Persisted key slots. Changing these is a breaking format change.
const (
	keyUserID        = "user_id"
	keySessions      = "sessions"
	keyConversations = "conversations"
)

// =============================================================================
// STORE
// =============================================================================

// Store persists client state in a SQLite key-value table.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the state database at ~/.querychat/state.db.
func Open() (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return OpenAt(filepath.Join(homeDir, ".querychat", "state.db"))
}

// OpenAt opens (or creates) the state database at the given path.
func OpenAt(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Single connection: the store is accessed from one process and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key   TEXT PRIMARY KEY,
			value BLOB NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return ErrStoreClosed
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// =============================================================================
// LOAD
// =============================================================================

// Load reads the persisted snapshot. Missing or malformed slots yield their
// defaults: empty user id, empty session list, empty conversation map. Load
// never fails on bad data; stored state is a cache, not a source of truth.
func (s *Store) Load() (userID string, sessions []string, convs map[string][]model.Message) {
	sessions = []string{}
	convs = map[string][]model.Message{}

	if raw, ok := s.get(keyUserID); ok {
		userID = string(raw)
	}

	if raw, ok := s.get(keySessions); ok {
		var saved []string
		if err := json.Unmarshal(raw, &saved); err == nil && saved != nil {
			sessions = saved
		}
	}

	if raw, ok := s.get(keyConversations); ok {
		var saved map[string][]model.Message
		if err := json.Unmarshal(raw, &saved); err == nil && saved != nil {
			convs = saved
		}
	}

	return userID, sessions, convs
}

// =============================================================================
// SAVE
// =============================================================================

// SaveUserID persists the generated user identifier.
func (s *Store) SaveUserID(userID string) error {
	return s.put(keyUserID, []byte(userID))
}

// SaveSessions persists the ordered session registry.
func (s *Store) SaveSessions(sessions []string) error {
	if sessions == nil {
		sessions = []string{}
	}
	data, err := json.Marshal(sessions)
	if err != nil {
		return err
	}
	return s.put(keySessions, data)
}

// SaveConversations persists the session-id to history map.
func (s *Store) SaveConversations(convs map[string][]model.Message) error {
	if convs == nil {
		convs = map[string][]model.Message{}
	}
	data, err := json.Marshal(convs)
	if err != nil {
		return err
	}
	return s.put(keyConversations, data)
}

// =============================================================================
// KV PRIMITIVES
// =============================================================================

func (s *Store) get(key string) ([]byte, bool) {
	if s.db == nil {
		return nil, false
	}
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return nil, false
	}
	return value, true
}

func (s *Store) put(key string, value []byte) error {
	if s.db == nil {
		return ErrStoreClosed
	}
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
