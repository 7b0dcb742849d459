// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the client-side application state: the user
// identity, the ordered session registry, the per-session message
// histories, the active session, and the flags that gate sends (API
// connectivity and loading).
//
// Every session id in the registry has a history entry, possibly empty;
// deleting a session removes both together. All mutations go through the
// Manager and operate on the latest state, never a stale snapshot, so
// operations that resume after a network call see interleaved changes.
// State is persisted through the storage package after every mutation.
package session
