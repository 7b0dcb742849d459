// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// DEFAULTS TESTS
// =============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.API.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("BaseURL = %q, want the local agent default", cfg.API.BaseURL)
	}
	if cfg.API.ChatTimeoutSecs != 120 {
		t.Errorf("ChatTimeoutSecs = %d, want 120", cfg.API.ChatTimeoutSecs)
	}
	if cfg.API.ProbeTimeoutSecs != 5 {
		t.Errorf("ProbeTimeoutSecs = %d, want 5", cfg.API.ProbeTimeoutSecs)
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("Theme = %q, want 'dark'", cfg.UI.Theme)
	}
	if !cfg.UI.RenderMarkdown {
		t.Error("RenderMarkdown should default on")
	}
}

func TestSetDefaults_FillsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	if cfg.API.BaseURL == "" {
		t.Error("SetDefaults should fill the base URL")
	}
	if cfg.API.HistoryTimeoutSecs != 10 {
		t.Errorf("HistoryTimeoutSecs = %d, want 10", cfg.API.HistoryTimeoutSecs)
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("Theme = %q, want 'dark'", cfg.UI.Theme)
	}
}

func TestSetDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.API.BaseURL = "http://example.com:9000"
	cfg.API.ChatTimeoutSecs = 30
	cfg.SetDefaults()

	if cfg.API.BaseURL != "http://example.com:9000" {
		t.Errorf("BaseURL = %q, explicit value should survive", cfg.API.BaseURL)
	}
	if cfg.API.ChatTimeoutSecs != 30 {
		t.Errorf("ChatTimeoutSecs = %d, explicit value should survive", cfg.API.ChatTimeoutSecs)
	}
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string // substring of the error, empty = valid
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing scheme",
			mutate:  func(c *Config) { c.API.BaseURL = "127.0.0.1:8000" },
			wantErr: "api.base_url",
		},
		{
			name:    "unsupported scheme",
			mutate:  func(c *Config) { c.API.BaseURL = "ftp://host" },
			wantErr: "must be http or https",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.API.ChatTimeoutSecs = -1 },
			wantErr: "api.chat_timeout_secs",
		},
		{
			name:    "bad theme",
			mutate:  func(c *Config) { c.UI.Theme = "solarized" },
			wantErr: "ui.theme",
		},
		{
			name:   "https allowed",
			mutate: func(c *Config) { c.API.BaseURL = "https://agent.example.com" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsMultipleErrors(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = "not a url"
	cfg.UI.Theme = "neon"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate should fail")
	}

	verrs, ok := err.(ValidateErrors)
	if !ok {
		t.Fatalf("error type = %T, want ValidateErrors", err)
	}
	if len(verrs) != 2 {
		t.Errorf("error count = %d, want 2", len(verrs))
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDE TESTS
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("QUERYCHAT_API_URL", "http://override:1234")
	t.Setenv("QUERYCHAT_THEME", "light")
	t.Setenv("QUERYCHAT_COMPACT", "true")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.API.BaseURL != "http://override:1234" {
		t.Errorf("BaseURL = %q, env override should win", cfg.API.BaseURL)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q, want 'light'", cfg.UI.Theme)
	}
	if !cfg.UI.CompactMode {
		t.Error("CompactMode should be set from env")
	}
}

func TestApplyEnvOverrides_UnsetLeavesConfig(t *testing.T) {
	os.Unsetenv("QUERYCHAT_API_URL")

	cfg := Default()
	cfg.API.BaseURL = "http://from-file:8000"
	cfg.ApplyEnvOverrides()

	if cfg.API.BaseURL != "http://from-file:8000" {
		t.Errorf("BaseURL = %q, unset env must not override", cfg.API.BaseURL)
	}
}

// =============================================================================
// LOAD / SAVE TESTS
// =============================================================================

func TestSaveAndLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.API.BaseURL = "http://saved:8000"
	cfg.UI.Theme = "light"

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if loaded.API.BaseURL != "http://saved:8000" {
		t.Errorf("BaseURL = %q, want the saved value", loaded.API.BaseURL)
	}
	if loaded.UI.Theme != "light" {
		t.Errorf("Theme = %q, want 'light'", loaded.UI.Theme)
	}
}

func TestLoadFromPath_PartialTOMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[api]\nbase_url = \"http://partial:8000\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.API.BaseURL != "http://partial:8000" {
		t.Errorf("BaseURL = %q, want the file value", cfg.API.BaseURL)
	}
	if cfg.API.ChatTimeoutSecs != 120 {
		t.Errorf("ChatTimeoutSecs = %d, unset fields keep defaults", cfg.API.ChatTimeoutSecs)
	}
}

func TestSaveAndLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.API.ChatTimeoutSecs = 60
	if err := SaveJSON(cfg, path); err != nil {
		t.Fatalf("SaveJSON failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.API.ChatTimeoutSecs != 60 {
		t.Errorf("ChatTimeoutSecs = %d, want 60", loaded.API.ChatTimeoutSecs)
	}
}

func TestLoadFromPath_InvalidContentRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[ui]\ntheme = \"neon\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Error("Invalid theme should fail validation")
	}
}

func TestStatePath(t *testing.T) {
	cfg := Default()
	cfg.Storage.DataDir = "/tmp/custom"

	path, err := cfg.StatePath()
	if err != nil {
		t.Fatalf("StatePath failed: %v", err)
	}
	if path != filepath.Join("/tmp/custom", "state.db") {
		t.Errorf("StatePath = %q, want the data_dir override honored", path)
	}
}

// =============================================================================
// WATCHER TESTS
// =============================================================================

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := SaveTOML(Default(), path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	changed := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	if err := w.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	updated := Default()
	updated.API.BaseURL = "http://reloaded:8000"
	if err := SaveTOML(updated, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	select {
	case cfg := <-changed:
		if cfg.API.BaseURL != "http://reloaded:8000" {
			t.Errorf("BaseURL = %q, want the reloaded value", cfg.API.BaseURL)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watcher never fired")
	}
}

func TestWatcher_InvalidChangeDropped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := SaveTOML(Default(), path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	changed := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	if err := w.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("theme = [broken"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	select {
	case cfg := <-changed:
		t.Errorf("Callback fired for invalid content: %+v", cfg)
	case <-time.After(1 * time.Second):
		// Expected: invalid content never reaches the callback
	}
}
