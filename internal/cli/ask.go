// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question handler for the querychat CLI.
//
// Command: ask
// Short:   Ask a single question and exit
//
// Examples:
//   querychat ask "top 5 customers by revenue"
//   querychat ask "row count per table" --json
//   querychat ask --session session_17… "and for last month?"
//
// The question lands in a session like any other message, so a later
// "querychat chat" resumes the same conversation.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jeranaias/querychat-tui/internal/reconcile"
)

// askResult is the JSON output shape for scripted callers.
type askResult struct {
	Session string `json:"session"`
	Query   string `json:"query"`
	Reply   string `json:"reply"`
}

// HandleAskCommand handles the "ask" command: a single query, printed reply,
// and exit.
func HandleAskCommand(args Args) error {
	if args.Query == "" {
		return fmt.Errorf("usage: querychat ask \"question\"")
	}

	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}

	rec, store, err := BuildStack(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := rec.Initialize(ctx); err != nil {
		return err
	}

	if args.Session != "" {
		if !rec.Manager().HasSession(args.Session) {
			return fmt.Errorf("unknown session: %s", args.Session)
		}
		if err := rec.Select(ctx, args.Session); err != nil {
			return err
		}
	}

	reply, err := rec.Send(ctx, args.Query)
	if err != nil {
		if errors.Is(err, reconcile.ErrDisconnected) {
			return fmt.Errorf("chat API is not reachable at %s", rec.Client().BaseURL())
		}
		return err
	}

	if args.JSON {
		out, err := json.MarshalIndent(askResult{
			Session: rec.Manager().Active(),
			Query:   args.Query,
			Reply:   reply,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	displayResponse(reply)

	if !args.Quiet && IsStdoutTTY() {
		fmt.Fprintf(os.Stderr, "%s %s\n",
			infoStyle.Render("[Session]"),
			sessionLabel(rec.Manager().Active()))
	}
	return nil
}
