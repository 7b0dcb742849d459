// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions_cmd.go - Session management commands for the querychat CLI.
//
// Command: sessions
// Short:   List, show, export, and delete cached sessions
//
// Examples:
//   querychat sessions list
//   querychat sessions show session_1712345678901
//   querychat sessions export session_1712345678901 --format json
//   querychat sessions delete session_1712345678901 --confirm
//
// These commands work against the local cache only; the server is never
// contacted, so they behave the same offline.
package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/querychat-tui/internal/model"
	"github.com/jeranaias/querychat-tui/internal/session"
	"github.com/jeranaias/querychat-tui/internal/storage"
)

// HandleSessionsCommand dispatches sessions subcommands.
func HandleSessionsCommand(args Args) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}

	statePath, err := cfg.StatePath()
	if err != nil {
		return err
	}
	store, err := storage.OpenAt(statePath)
	if err != nil {
		return err
	}
	defer store.Close()

	mgr := session.NewManager(store)

	switch args.Subcommand {
	case "", "list", "ls", "l":
		return sessionsList(mgr, args)
	case "show":
		return sessionsShow(mgr, args)
	case "export":
		return sessionsExport(mgr, cfg.Storage.ExportDir, args)
	case "delete", "rm":
		return sessionsDelete(mgr, args)
	default:
		return fmt.Errorf("unknown sessions subcommand: %s (try list, show, export, delete)", args.Subcommand)
	}
}

// sessionSummary is the JSON output shape for sessions list.
type sessionSummary struct {
	ID       string `json:"id"`
	Active   bool   `json:"active"`
	Messages int    `json:"messages"`
	Preview  string `json:"preview,omitempty"`
}

// sessionsList prints all cached sessions, newest first.
func sessionsList(mgr *session.Manager, args Args) error {
	sessions := mgr.Sessions()
	active := mgr.Active()

	if args.JSON {
		summaries := make([]sessionSummary, 0, len(sessions))
		for _, id := range sessions {
			history := mgr.History(id)
			summaries = append(summaries, sessionSummary{
				ID:       id,
				Active:   id == active,
				Messages: len(history),
				Preview:  model.FirstUserText(history),
			})
		}
		out, err := json.MarshalIndent(summaries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(sessions) == 0 {
		fmt.Println(infoStyle.Render("[No sessions]"))
		return nil
	}

	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Sessions"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	for i, id := range sessions {
		marker := " "
		if id == active {
			marker = commandStyle.Render("*")
		}

		history := mgr.History(id)
		preview := model.FirstUserText(history)
		if preview == "" {
			preview = "(empty)"
		}

		fmt.Printf("  %s %d. %s  %s\n",
			marker,
			i+1,
			commandStyle.Render(id),
			infoStyle.Render(truncatePreview(preview, 50)))
	}

	fmt.Println()
	return nil
}

// sessionsShow prints one session transcript.
func sessionsShow(mgr *session.Manager, args Args) error {
	if args.Session == "" {
		return fmt.Errorf("usage: querychat sessions show <id>")
	}
	if !mgr.HasSession(args.Session) {
		return fmt.Errorf("unknown session: %s", args.Session)
	}

	history := mgr.History(args.Session)

	if args.JSON {
		out, err := json.MarshalIndent(history, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Print(storage.FormatMarkdown(args.Session, history))
	return nil
}

// sessionsExport writes one session transcript to a file.
func sessionsExport(mgr *session.Manager, exportDir string, args Args) error {
	if args.Session == "" {
		return fmt.Errorf("usage: querychat sessions export <id> [--format md|json] [--output FILE]")
	}
	if !mgr.HasSession(args.Session) {
		return fmt.Errorf("unknown session: %s", args.Session)
	}

	format := args.Format
	if format == "" {
		format = "md"
	}

	path := args.Output
	if path == "" {
		if exportDir == "" {
			exportDir = "."
		}
		path = filepath.Join(exportDir, fmt.Sprintf("%s_%s.%s",
			args.Session, time.Now().Format("20060102_150405"), format))
	}

	history := mgr.History(args.Session)

	var err error
	switch format {
	case "md", "markdown":
		err = storage.ExportMarkdown(path, args.Session, history)
	case "json":
		err = storage.ExportJSON(path, args.Session, history)
	default:
		return fmt.Errorf("unknown export format: %s (try md, json)", format)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s Exported to %s\n",
		commandStyle.Render("[OK]"),
		path)
	return nil
}

// sessionsDelete removes a session from the cache.
func sessionsDelete(mgr *session.Manager, args Args) error {
	if args.Session == "" {
		return fmt.Errorf("usage: querychat sessions delete <id> --confirm")
	}
	if !args.Confirm {
		return fmt.Errorf("deleting a session is permanent; re-run with --confirm")
	}
	if !mgr.HasSession(args.Session) {
		return fmt.Errorf("unknown session: %s", args.Session)
	}

	if err := mgr.DeleteSession(args.Session); err != nil {
		return err
	}

	fmt.Printf("%s Deleted session: %s\n",
		commandStyle.Render("[OK]"),
		args.Session)
	return nil
}
