// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the querychat command-line surface: argument
// parsing, the plain-terminal chat REPL, one-shot queries, and the
// non-interactive session management commands.
//
// The TUI is the default mode and lives in internal/ui; everything here
// serves scripting, piped output, and terminals where a full-screen
// interface is unwanted.
package cli
