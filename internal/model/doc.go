// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat messages and history.
//
// A Message is one entry in a session's conversation history. Messages are
// either final (user input or a bot reply) or temporary placeholders shown
// while a chat request is in flight. Placeholders carry a correlation id
// (TempID) that ties them to the request that will resolve them; they are
// never persisted as final content.
package model
