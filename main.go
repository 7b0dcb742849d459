// querychat TUI - a terminal client for a SQL-agent chat API.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/querychat-tui/internal/cli"
	"github.com/jeranaias/querychat-tui/internal/config"
	"github.com/jeranaias/querychat-tui/internal/ui/chat"
	"github.com/jeranaias/querychat-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdChat:
		exitOnError(cli.HandleChatCommand(args))
	case cli.CmdAsk:
		exitOnError(cli.HandleAskCommand(args))
	case cli.CmdSessions:
		exitOnError(cli.HandleSessionsCommand(args))
	case cli.CmdStatus:
		exitOnError(cli.HandleStatusCommand(args))
	case cli.CmdConfig:
		exitOnError(cli.HandleConfigCommand(args))
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	default:
		runTUI(args)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runTUI starts the full-screen interface.
func runTUI(args cli.Args) {
	cfg, err := cli.LoadConfig(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	rec, store, err := cli.BuildStack(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// Seed from the local cache before the first frame; the server
	// reconcile happens asynchronously once the program is running.
	if _, _, err := rec.SeedLocal(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	theme := styles.NewTheme()
	m := chat.New(theme, cfg, rec)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	// Watch the config file and push edits into the running program.
	// A watcher failure is not fatal; the TUI just runs without reloads.
	if w := watchConfig(args, p); w != nil {
		defer w.Close()
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running querychat: %v\n", err)
		os.Exit(1)
	}
}

// watchConfig starts a file watcher on the active config path and
// forwards validated reloads to the program as ConfigReloadedMsg.
func watchConfig(args cli.Args, p *tea.Program) *config.Watcher {
	path := args.ConfigPath
	if path == "" {
		var err error
		path, err = config.ConfigPathTOML()
		if err != nil {
			return nil
		}
	}

	w, err := config.NewWatcher(path, func(cfg *config.Config) {
		p.Send(chat.ConfigReloadedMsg{Config: cfg})
	})
	if err != nil {
		return nil
	}
	if err := w.Watch(); err != nil {
		w.Close()
		return nil
	}
	return w
}
