// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// The model owns a session reconciler and a remote API client. Server
// round trips run inside Bubble Tea commands; the resulting messages
// resolve against the state as it is when they land, so the view stays
// responsive while requests are in flight.
package chat
