// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reconcile merges server-authoritative history into the locally
// cached conversations and drives the optimistic send flow.
//
// The merge rule is deliberately simple: a successful, non-empty server
// fetch replaces the cached history wholesale; anything else (fetch
// failure, empty result) keeps the cache untouched. Sends append the user
// message and a placeholder immediately, then resolve the placeholder in
// place once the request completes - or append the resolution if a
// concurrent reconciliation removed the placeholder meanwhile. Resolution
// always reads the session's current history, never the snapshot taken
// when the send started.
package reconcile
