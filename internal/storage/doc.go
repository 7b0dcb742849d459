// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides local persistence for querychat sessions.
//
// State lives in a small SQLite key-value table under the state directory
// (default ~/.querychat/state.db). Three slots are persisted: the generated
// user identifier, the ordered session list, and the session-id to message
// history map. The slots are written independently; there is no cross-slot
// atomicity, and a malformed or missing slot loads as its default value
// rather than failing.
package storage
