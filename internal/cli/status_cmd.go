// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status_cmd.go - Server connectivity status command for the querychat CLI.
//
// Command: status (alias: s)
// Short:   Probe the chat API and report connectivity and local state
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeranaias/querychat-tui/internal/session"
	"github.com/jeranaias/querychat-tui/internal/storage"
)

// statusReport is the JSON output shape for the status command.
type statusReport struct {
	Server    string `json:"server"`
	Connected bool   `json:"connected"`
	StatePath string `json:"state_path"`
	Sessions  int    `json:"sessions"`
	UserID    string `json:"user_id,omitempty"`
}

// HandleStatusCommand probes the server and prints a connectivity report.
func HandleStatusCommand(args Args) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}

	client := NewClient(cfg)
	connected := client.ProbeConnectivity(context.Background())

	statePath, err := cfg.StatePath()
	if err != nil {
		return err
	}

	var sessionCount int
	var userID string
	if store, err := storage.OpenAt(statePath); err == nil {
		mgr := session.NewManager(store)
		sessionCount = len(mgr.Sessions())
		userID = mgr.UserID()
		store.Close()
	}

	if args.JSON {
		out, err := json.MarshalIndent(statusReport{
			Server:    client.BaseURL(),
			Connected: connected,
			StatePath: statePath,
			Sessions:  sessionCount,
			UserID:    userID,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("querychat status"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	fmt.Printf("  %s %s\n",
		infoStyle.Render("Server:"),
		commandStyle.Render(client.BaseURL()))
	if connected {
		fmt.Printf("  %s %s\n",
			infoStyle.Render("Connectivity:"),
			commandStyle.Render("connected"))
	} else {
		fmt.Printf("  %s %s\n",
			infoStyle.Render("Connectivity:"),
			errorStyle.Render("disconnected"))
	}
	fmt.Printf("  %s %s\n",
		infoStyle.Render("State:"),
		statePath)
	fmt.Printf("  %s %d\n",
		infoStyle.Render("Sessions:"),
		sessionCount)
	if userID != "" {
		fmt.Printf("  %s %s\n",
			infoStyle.Render("User:"),
			userID)
	}

	fmt.Println()
	return nil
}
