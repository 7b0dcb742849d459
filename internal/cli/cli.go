// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for querychat.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdSessions
	CmdStatus
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	Plain   bool // Plain-terminal chat instead of the TUI
	JSON    bool // Output in JSON format where supported

	// Overrides
	APIURL     string // --api-url overrides config
	ConfigPath string // --config points at an explicit config file

	// Command-specific
	Query      string
	Session    string
	Subcommand string
	Format     string // Export format (md, json)
	Output     string // Export destination path
	Confirm    bool   // Required for destructive subcommands

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `querychat - terminal client for a SQL-agent chat API

Querychat talks to a chat agent server, keeps a local copy of every
conversation, and reconciles the two whenever the server is reachable.
Conversations survive offline: anything cached locally stays readable
and sending resumes once the server comes back.

Usage:
  querychat                    Start the TUI (default)
  querychat chat               Plain-terminal interactive chat
  querychat ask "question"     Ask a single question and exit
  querychat sessions [cmd]     Session management
  querychat status             Show server connectivity and config
  querychat config [cmd]       Configuration
  querychat version            Show version
  querychat help               Show this help

Session Commands:
  querychat sessions list             List all cached sessions
  querychat sessions show <id>        Print a session transcript
  querychat sessions export <id>      Export a session transcript
    --format md|json                  Export format (default: md)
    --output FILE                     Destination (default: export dir)
  querychat sessions delete <id>      Delete a session
    --confirm                         Required confirmation flag

Config Commands:
  querychat config show               Show the effective configuration
  querychat config path               Print config file locations
  querychat config init               Write a default config file

Interactive Commands (during chat):
  /help, /h           Show available commands
  /new                Start a new session
  /sessions           List sessions
  /switch <n|id>      Switch to another session
  /delete <id>        Delete a session
  /history            Show the current transcript
  /export [path]      Export the current session as markdown
  /reconnect          Re-probe the server and reload
  /status, /s         Show session state
  /quit, /q           Exit chat
  Ctrl+D              Exit chat

Global Flags:
  --plain             Plain-terminal chat instead of the TUI
  --api-url URL       Override the chat API base URL
  --config FILE       Use an explicit config file
  -q, --quiet         Minimal output
  -v, --verbose       Debug output
  --json              Output in JSON format where supported

Examples:
  querychat                            Start the TUI
  querychat --plain                    Plain-terminal chat
  querychat ask "top 5 customers by revenue"
  querychat ask "row count per table" --json
  querychat --api-url http://db-agent:8000 chat
  querychat sessions export session_1712345678901 --format json
  querychat sessions delete session_1712345678901 --confirm

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("querychat version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses the given argument list. Split out from Parse for tests.
func ParseArgs(args []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(args)

	// No command: TUI unless --plain asked for the terminal REPL.
	if len(remaining) == 0 {
		if parsedArgs.Plain {
			return CmdChat, parsedArgs
		}
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "chat":
		parseChatArgs(&parsedArgs, remaining)
		return CmdChat, parsedArgs

	case "ask":
		parseAskArgs(&parsedArgs, remaining)
		return CmdAsk, parsedArgs

	case "session", "sessions":
		parseSessionsArgs(&parsedArgs, remaining)
		return CmdSessions, parsedArgs

	case "status", "s":
		return CmdStatus, parsedArgs

	case "config":
		if len(remaining) > 0 {
			parsedArgs.Subcommand = strings.ToLower(remaining[0])
		}
		return CmdConfig, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Unknown word: treat the whole remainder as a one-shot question.
		parsedArgs.Query = strings.Join(append([]string{cmd}, remaining...), " ")
		return CmdAsk, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "--plain":
			parsedArgs.Plain = true
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "--api-url":
			if i+1 < len(args) {
				i++
				parsedArgs.APIURL = args[i]
			}
		case "--config":
			if i+1 < len(args) {
				i++
				parsedArgs.ConfigPath = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--api-url=") {
				parsedArgs.APIURL = strings.TrimPrefix(arg, "--api-url=")
			} else if strings.HasPrefix(arg, "--config=") {
				parsedArgs.ConfigPath = strings.TrimPrefix(arg, "--config=")
			} else {
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// parseChatArgs parses chat command specific arguments.
func parseChatArgs(args *Args, remaining []string) {
	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch arg {
		case "-s", "--session":
			if i+1 < len(remaining) {
				i++
				args.Session = remaining[i]
			}
		default:
			if strings.HasPrefix(arg, "--session=") {
				args.Session = strings.TrimPrefix(arg, "--session=")
			}
		}
	}
}

// parseAskArgs parses ask command specific arguments. Everything that is
// not a flag joins the query text.
func parseAskArgs(args *Args, remaining []string) {
	var query []string

	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch arg {
		case "-s", "--session":
			if i+1 < len(remaining) {
				i++
				args.Session = remaining[i]
			}
		default:
			if strings.HasPrefix(arg, "--session=") {
				args.Session = strings.TrimPrefix(arg, "--session=")
			} else if !strings.HasPrefix(arg, "-") {
				query = append(query, arg)
			}
		}
	}

	args.Query = strings.Join(query, " ")
}

// parseSessionsArgs parses the sessions command: subcommand, target id,
// and export flags.
func parseSessionsArgs(args *Args, remaining []string) {
	var positional []string

	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch arg {
		case "--confirm":
			args.Confirm = true
		case "-f", "--format":
			if i+1 < len(remaining) {
				i++
				args.Format = remaining[i]
			}
		case "-o", "--output":
			if i+1 < len(remaining) {
				i++
				args.Output = remaining[i]
			}
		default:
			if strings.HasPrefix(arg, "--format=") {
				args.Format = strings.TrimPrefix(arg, "--format=")
			} else if strings.HasPrefix(arg, "--output=") {
				args.Output = strings.TrimPrefix(arg, "--output=")
			} else if !strings.HasPrefix(arg, "-") {
				positional = append(positional, arg)
			}
		}
	}

	if len(positional) > 0 {
		args.Subcommand = strings.ToLower(positional[0])
	}
	if len(positional) > 1 {
		args.Session = positional[1]
	}
}
