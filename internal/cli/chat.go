// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for the querychat CLI.
//
// Handles the "querychat chat" command (and "querychat --plain"), which
// provides an interactive REPL against the chat agent server without the
// full-screen TUI.
//
// Command: chat
// Short:   Plain-terminal interactive chat
//
// Examples:
//   querychat chat                         Start plain-terminal chat
//   querychat chat --session session_17…   Resume a specific session
//   querychat --api-url http://host:8000 chat
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /new                Start a new session
//   /sessions           List sessions
//   /switch <n|id>      Switch to another session
//   /delete <id>        Delete a session
//   /history            Show the current transcript
//   /export [path]      Export the current session as markdown
//   /reconnect          Re-probe the server and reload
//   /status, /s         Show session state
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel the in-flight query
//   Ctrl+D              Exit chat
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/querychat-tui/internal/config"
	"github.com/jeranaias/querychat-tui/internal/model"
	"github.com/jeranaias/querychat-tui/internal/reconcile"
	"github.com/jeranaias/querychat-tui/internal/session"
	"github.com/jeranaias/querychat-tui/internal/storage"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
// Supports arrow keys for history navigation.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		// Fallback to temp directory if config dir unavailable
		configDir = os.TempDir()
	}
	historyFile := filepath.Join(configDir, "chat_history")

	cli := &ChatCLI{
		line:        line,
		historyFile: historyFile,
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
// Supports history navigation with arrow keys.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history to file with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}

	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatREPL holds the state for an interactive plain-terminal chat.
type ChatREPL struct {
	rec *reconcile.Reconciler
	cfg *config.Config

	Quiet bool

	// Tracking
	StartTime time.Time
	Queries   int

	// Cancel function for the in-flight send
	CancelFunc context.CancelFunc

	// Input history handler
	InputCLI *ChatCLI
}

// NewChatREPL creates a new plain-terminal chat over an existing reconciler.
func NewChatREPL(rec *reconcile.Reconciler, cfg *config.Config, quiet bool) *ChatREPL {
	return &ChatREPL{
		rec:       rec,
		cfg:       cfg,
		Quiet:     quiet,
		StartTime: time.Now(),
		InputCLI:  NewChatCLI(),
	}
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChatCommand handles the "chat" command with full interactive support.
func HandleChatCommand(args Args) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
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

	// Resume a specific session when asked and it exists locally.
	if args.Session != "" {
		if !rec.Manager().HasSession(args.Session) {
			return fmt.Errorf("unknown session: %s", args.Session)
		}
		if err := rec.Select(ctx, args.Session); err != nil {
			return err
		}
	}

	repl := NewChatREPL(rec, cfg, args.Quiet)

	if !repl.Quiet {
		printWelcome(repl)
	}

	// Ensure input history is saved on exit
	defer repl.InputCLI.Close()

	// First Ctrl+C during generation cancels the in-flight send.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		for range sigChan {
			if repl.CancelFunc != nil {
				repl.CancelFunc()
				repl.CancelFunc = nil
				fmt.Fprintln(os.Stderr, "\n"+warningStyle.Render("[Cancelled]"))
			}
		}
	}()

	// Main REPL loop using liner for input history
	for {
		input, err := repl.InputCLI.ReadInput(promptStyle.Render("querychat> "))
		if err != nil {
			// Ctrl+C at the prompt or EOF (Ctrl+D) - exit gracefully
			fmt.Println()
			printExitSummary(repl)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldContinue, err := handleSlashCommand(input, repl)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n",
					errorStyle.Render("[Error]"),
					err)
			}
			if !shouldContinue {
				printExitSummary(repl)
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			printExitSummary(repl)
			return nil
		}

		if err := processMessage(repl, input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n",
				errorStyle.Render("[Error]"),
				err)
		}
	}
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage runs one send through the reconciler and prints the reply.
func processMessage(repl *ChatREPL, input string) error {
	ctx, cancel := context.WithCancel(context.Background())
	repl.CancelFunc = cancel
	defer func() {
		repl.CancelFunc = nil
		cancel()
	}()

	startTime := time.Now()

	reply, err := repl.rec.Send(ctx, input)
	if err != nil {
		switch {
		case errors.Is(err, reconcile.ErrBlankInput):
			return nil
		case errors.Is(err, reconcile.ErrDisconnected):
			fmt.Fprintf(os.Stderr, "%s Server offline - message not sent. Try %s\n",
				warningStyle.Render("[Offline]"),
				commandStyle.Render("/reconnect"))
			return nil
		default:
			return err
		}
	}

	// The signal handler already printed a cancel notice; the transcript
	// keeps the resolved text.
	if ctx.Err() != nil {
		return nil
	}

	fmt.Println()
	displayResponse(reply)
	fmt.Println()

	repl.Queries++

	if !repl.Quiet {
		status := repl.rec.Manager().APIStatus()
		fmt.Fprintf(os.Stderr, "%s %s | %s\n",
			infoStyle.Render("[Stats]"),
			statusLabel(status),
			time.Since(startTime).Round(time.Millisecond))
	}

	return nil
}

// statusLabel renders the connectivity status with a color.
func statusLabel(status session.APIStatus) string {
	switch status {
	case session.StatusConnected:
		return commandStyle.Render("connected")
	case session.StatusDisconnected:
		return errorStyle.Render("disconnected")
	default:
		return warningStyle.Render("checking")
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes slash commands.
// Returns (shouldContinue, error) where shouldContinue=false means exit.
func handleSlashCommand(cmd string, repl *ChatREPL) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return true, nil
	}

	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?":
		printChatHelp()
		return true, nil

	case "/new":
		return handleNewCommand(repl)

	case "/sessions", "/list":
		printSessions(repl)
		return true, nil

	case "/switch", "/sw":
		return handleSwitchCommand(repl, args)

	case "/delete", "/del":
		return handleDeleteCommand(repl, args)

	case "/history":
		printTranscript(repl)
		return true, nil

	case "/export", "/e":
		return handleExportCommand(repl, args)

	case "/reconnect", "/r":
		return handleReconnectCommand(repl)

	case "/status", "/s":
		printREPLStatus(repl)
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	case "/":
		printChatHelp()
		return true, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
}

// handleNewCommand creates and selects a fresh session.
func handleNewCommand(repl *ChatREPL) (bool, error) {
	id := session.NewSessionID()
	if err := repl.rec.CreateAndSelect(context.Background(), id); err != nil {
		return true, err
	}
	fmt.Printf("%s New session: %s\n",
		commandStyle.Render("[OK]"),
		sessionLabel(id))
	return true, nil
}

// handleSwitchCommand switches to another session by list number or id.
func handleSwitchCommand(repl *ChatREPL, args []string) (bool, error) {
	if len(args) == 0 {
		return true, fmt.Errorf("usage: /switch <number|id> (see /sessions)")
	}

	sessions := repl.rec.Manager().Sessions()
	target := args[0]

	// A small integer is a 1-based index into the session list.
	if n, err := strconv.Atoi(target); err == nil {
		if n < 1 || n > len(sessions) {
			return true, fmt.Errorf("session number out of range: %d", n)
		}
		target = sessions[n-1]
	}

	if !repl.rec.Manager().HasSession(target) {
		return true, fmt.Errorf("unknown session: %s", target)
	}

	if err := repl.rec.Select(context.Background(), target); err != nil {
		return true, err
	}
	fmt.Printf("%s Switched to session: %s\n",
		commandStyle.Render("[OK]"),
		sessionLabel(target))
	return true, nil
}

// handleDeleteCommand deletes a session by list number or id.
func handleDeleteCommand(repl *ChatREPL, args []string) (bool, error) {
	if len(args) == 0 {
		return true, fmt.Errorf("usage: /delete <number|id> (see /sessions)")
	}

	sessions := repl.rec.Manager().Sessions()
	target := args[0]

	if n, err := strconv.Atoi(target); err == nil {
		if n < 1 || n > len(sessions) {
			return true, fmt.Errorf("session number out of range: %d", n)
		}
		target = sessions[n-1]
	}

	if err := repl.rec.Delete(target); err != nil {
		return true, err
	}
	fmt.Printf("%s Deleted session: %s\n",
		commandStyle.Render("[OK]"),
		sessionLabel(target))

	if active := repl.rec.Manager().Active(); active != "" {
		fmt.Printf("%s Now on session: %s\n",
			infoStyle.Render("[Info]"),
			sessionLabel(active))
	}
	return true, nil
}

// handleExportCommand writes the active transcript as markdown.
func handleExportCommand(repl *ChatREPL, args []string) (bool, error) {
	active := repl.rec.Manager().Active()
	if active == "" {
		return true, fmt.Errorf("no session selected")
	}

	var path string
	if len(args) > 0 {
		path = args[0]
	} else {
		dir := repl.cfg.Storage.ExportDir
		if dir == "" {
			dir = "."
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%s.md",
			active, time.Now().Format("20060102_150405")))
	}

	history := repl.rec.Manager().History(active)
	if err := storage.ExportMarkdown(path, active, history); err != nil {
		return true, err
	}
	fmt.Printf("%s Exported to %s\n",
		commandStyle.Render("[OK]"),
		path)
	return true, nil
}

// handleReconnectCommand re-probes the server and reloads the active session.
func handleReconnectCommand(repl *ChatREPL) (bool, error) {
	ctx := context.Background()
	if !repl.rec.Probe(ctx) {
		fmt.Printf("%s Server still unreachable at %s\n",
			warningStyle.Render("[Offline]"),
			repl.rec.Client().BaseURL())
		return true, nil
	}

	active := repl.rec.Manager().Active()
	if active != "" {
		opts := reconcile.LoadOptions{SelectAfterLoad: true, ShowCachedFirst: true}
		if err := repl.rec.EnsureAndLoad(ctx, active, opts); err != nil {
			return true, err
		}
	}
	fmt.Printf("%s Reconnected to %s\n",
		commandStyle.Render("[OK]"),
		repl.rec.Client().BaseURL())
	return true, nil
}

// =============================================================================
// DISPLAY FUNCTIONS
// =============================================================================

// sessionLabel shortens a session id for display.
func sessionLabel(id string) string {
	if rest, ok := strings.CutPrefix(id, "session_"); ok {
		return "#" + rest
	}
	return id
}

// printWelcome prints the welcome banner.
func printWelcome(repl *ChatREPL) {
	mgr := repl.rec.Manager()

	fmt.Println()
	fmt.Println(welcomeStyle.Render("querychat interactive chat"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 30)))
	fmt.Printf("%s %s\n",
		infoStyle.Render("Server:"),
		commandStyle.Render(repl.rec.Client().BaseURL()))
	fmt.Printf("%s %s\n",
		infoStyle.Render("Status:"),
		statusLabel(mgr.APIStatus()))
	if active := mgr.Active(); active != "" {
		fmt.Printf("%s %s (%d messages)\n",
			infoStyle.Render("Session:"),
			commandStyle.Render(sessionLabel(active)),
			len(mgr.History(active)))
	}

	if mgr.APIStatus() == session.StatusDisconnected {
		fmt.Println()
		fmt.Println(warningStyle.Render("Server offline - cached conversations are readable, sending is disabled."))
	}

	fmt.Println()
	fmt.Println(infoStyle.Render("Type your question and press Enter. Commands: /help, /quit"))
	fmt.Println()
}

// printChatHelp prints available slash commands.
func printChatHelp() {
	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Available Commands"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/new", "Start a new session"},
		{"/sessions", "List sessions"},
		{"/switch <n|id>", "Switch to another session"},
		{"/delete <n|id>", "Delete a session"},
		{"/history", "Show the current transcript"},
		{"/export [path]", "Export the current session as markdown"},
		{"/reconnect", "Re-probe the server and reload"},
		{"/status, /s", "Show session state"},
		{"/quit, /q", "Exit chat"},
	}

	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			commandStyle.Render(fmt.Sprintf("%-16s", c.cmd)),
			infoStyle.Render(c.desc))
	}

	fmt.Println()
	fmt.Println(infoStyle.Render("Tip: Ctrl+C cancels the in-flight query, Ctrl+D exits"))
	fmt.Println()
}

// printSessions lists all cached sessions, newest first.
func printSessions(repl *ChatREPL) {
	mgr := repl.rec.Manager()
	sessions := mgr.Sessions()
	active := mgr.Active()

	if len(sessions) == 0 {
		fmt.Println(infoStyle.Render("[No sessions]"))
		return
	}

	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Sessions"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	for i, id := range sessions {
		marker := " "
		label := sessionLabel(id)
		if id == active {
			marker = commandStyle.Render("*")
			label = commandStyle.Render(label)
		}

		history := mgr.History(id)
		preview := model.FirstUserText(history)
		if preview == "" {
			preview = infoStyle.Render("(empty)")
		} else {
			preview = infoStyle.Render(truncatePreview(preview, 50))
		}

		fmt.Printf("  %s %d. %s  %s\n", marker, i+1, label, preview)
	}

	fmt.Println()
}

// truncatePreview shortens preview text rune-safely and flattens newlines.
func truncatePreview(s string, maxRunes int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) > maxRunes {
		return string(runes[:maxRunes]) + "..."
	}
	return s
}

// printTranscript prints the active conversation.
func printTranscript(repl *ChatREPL) {
	mgr := repl.rec.Manager()
	active := mgr.Active()
	history := mgr.History(active)

	if len(history) == 0 {
		fmt.Println(infoStyle.Render("[No messages yet]"))
		return
	}

	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Conversation History"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 25)))
	fmt.Println()

	for i, msg := range history {
		var role string
		switch msg.Sender {
		case model.SenderUser:
			role = promptStyle.Render("You")
		default:
			role = welcomeStyle.Render("Agent")
		}

		text := msg.Text
		if msg.IsPlaceholder() {
			text = infoStyle.Render("(thinking...)")
		}
		fmt.Printf("  %d. %s: %s\n", i+1, role, truncatePreview(text, 100))
	}

	fmt.Println()
}

// printREPLStatus prints session state.
func printREPLStatus(repl *ChatREPL) {
	mgr := repl.rec.Manager()
	elapsed := time.Since(repl.StartTime).Round(time.Second)

	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Session Status"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	fmt.Printf("  %s %s\n",
		infoStyle.Render("Server:"),
		commandStyle.Render(repl.rec.Client().BaseURL()))
	fmt.Printf("  %s %s\n",
		infoStyle.Render("Status:"),
		statusLabel(mgr.APIStatus()))
	if active := mgr.Active(); active != "" {
		fmt.Printf("  %s %s\n",
			infoStyle.Render("Session:"),
			commandStyle.Render(sessionLabel(active)))
		fmt.Printf("  %s %d messages\n",
			infoStyle.Render("History:"),
			len(mgr.History(active)))
	}
	fmt.Printf("  %s %d\n",
		infoStyle.Render("Sessions:"),
		len(mgr.Sessions()))
	fmt.Printf("  %s %d\n",
		infoStyle.Render("Queries:"),
		repl.Queries)
	fmt.Printf("  %s %s\n",
		infoStyle.Render("Duration:"),
		elapsed.String())

	fmt.Println()
}

// printExitSummary prints the session summary on exit.
func printExitSummary(repl *ChatREPL) {
	if repl.Queries == 0 {
		fmt.Println(infoStyle.Render("Goodbye!"))
		return
	}

	elapsed := time.Since(repl.StartTime).Round(time.Second)

	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Session Summary"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 15)))

	fmt.Printf("  %s %d\n",
		infoStyle.Render("Queries:"),
		repl.Queries)
	fmt.Printf("  %s %s\n",
		infoStyle.Render("Duration:"),
		elapsed.String())

	fmt.Println()
	fmt.Println(infoStyle.Render("Goodbye!"))
}
