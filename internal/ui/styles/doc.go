// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the querychat TUI.
//
// All colors use Lip Gloss AdaptiveColor so the palette adjusts to light
// and dark terminal backgrounds automatically. The Theme type bundles the
// styled components used across the UI; construct one with NewTheme at
// startup and share it.
package styles
