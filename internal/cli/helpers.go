// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Shared setup for CLI command handlers.
package cli

import (
	"fmt"
	"time"

	"github.com/jeranaias/querychat-tui/internal/api"
	"github.com/jeranaias/querychat-tui/internal/config"
	"github.com/jeranaias/querychat-tui/internal/reconcile"
	"github.com/jeranaias/querychat-tui/internal/session"
	"github.com/jeranaias/querychat-tui/internal/storage"
)

// LoadConfig loads the effective configuration for the given args,
// honoring --config and --api-url overrides.
func LoadConfig(args Args) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if args.APIURL != "" {
		cfg.API.BaseURL = args.APIURL
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid --api-url: %w", err)
		}
	}
	return cfg, nil
}

// NewClient builds an API client from the loaded configuration.
func NewClient(cfg *config.Config) *api.Client {
	return api.NewClientWithConfig(&api.ClientConfig{
		BaseURL:        cfg.API.BaseURL,
		ProbeTimeout:   time.Duration(cfg.API.ProbeTimeoutSecs) * time.Second,
		EnsureTimeout:  time.Duration(cfg.API.EnsureTimeoutSecs) * time.Second,
		HistoryTimeout: time.Duration(cfg.API.HistoryTimeoutSecs) * time.Second,
		ChatTimeout:    time.Duration(cfg.API.ChatTimeoutSecs) * time.Second,
	})
}

// BuildStack opens the local store and wires the manager, client, and
// reconciler. The caller owns the store and must close it.
func BuildStack(cfg *config.Config) (*reconcile.Reconciler, *storage.Store, error) {
	statePath, err := cfg.StatePath()
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.OpenAt(statePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open state database: %w", err)
	}

	mgr := session.NewManager(store)
	rec := reconcile.New(mgr, NewClient(cfg))
	return rec, store, nil
}
