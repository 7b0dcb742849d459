// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the remote chat agent API.
//
// The client wraps four operations: a connectivity probe, session ensure,
// history fetch, and chat send. Each has its own timeout and classifies
// failures into a small taxonomy (connection, timeout, not-found, server,
// invalid-response). Failures are terminal for the attempt; nothing here
// retries.
package api
