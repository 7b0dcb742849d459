// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
)

func TestNewTheme(t *testing.T) {
	theme := NewTheme()
	if theme == nil {
		t.Fatal("NewTheme returned nil")
	}

	// Spot check that styles are initialized
	if theme.UserBubble.GetPaddingLeft() != 2 {
		t.Error("UserBubble padding not initialized")
	}
	if !theme.StatusConnected.GetBold() {
		t.Error("StatusConnected should be bold")
	}
}

func TestGetLayoutMode(t *testing.T) {
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
		{200, LayoutWide},
	}

	theme := NewTheme()
	for _, tt := range tests {
		theme.SetSize(tt.width, 24)
		if got := theme.GetLayoutMode(); got != tt.want {
			t.Errorf("GetLayoutMode() at width %d = %v, want %v", tt.width, got, tt.want)
		}
	}
}

func TestStatusIndicatorRendering(t *testing.T) {
	tests := []struct {
		name      string
		render    func(string) string
		indicator string
	}{
		{"connected", RenderConnected, StatusIndicators.Connected},
		{"disconnected", RenderDisconnected, StatusIndicators.Disconnected},
		{"checking", RenderChecking, StatusIndicators.Checking},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.render("API")
			if !strings.Contains(out, tt.indicator) {
				t.Errorf("Rendered %q missing indicator %q", out, tt.indicator)
			}
			if !strings.Contains(out, "API") {
				t.Errorf("Rendered %q missing the message", out)
			}
		})
	}
}
