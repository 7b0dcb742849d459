// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for the querychat TUI.
//
// It contains the atomic file write used by exports, rune- and width-aware
// string truncation for sidebar and transcript rendering, and small strconv
// wrappers used by the UI.
package util
