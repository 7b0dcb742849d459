// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/querychat-tui/internal/config"
	"github.com/jeranaias/querychat-tui/internal/reconcile"
	"github.com/jeranaias/querychat-tui/internal/session"
	"github.com/jeranaias/querychat-tui/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateReady   State = iota // Ready for input
	StateSending              // Waiting for the agent reply
	StateError                // Showing an error
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// State
	state State

	// Styling
	theme *styles.Theme

	// Configuration
	cfg *config.Config

	// Dimensions
	width  int
	height int

	// Session reconciliation
	rec *reconcile.Reconciler

	// In-flight send correlation id
	sendTempID string

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Key bindings
	keyMap KeyMap

	// Error state
	lastError *ErrorMsg

	// Status
	statusMsg   string
	statusSetAt time.Time

	// Thinking state
	thinkingStart time.Time

	// Help overlay
	showHelp bool
}

// New creates a new chat model. The reconciler must already be seeded
// with a local session (main does this before starting the program).
func New(theme *styles.Theme, cfg *config.Config, rec *reconcile.Reconciler) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your data..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	// ASCII-compatible spinner animation
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	return Model{
		state:    StateReady,
		theme:    theme,
		cfg:      cfg,
		rec:      rec,
		viewport: vp,
		input:    ti,
		spinner:  sp,
		keyMap:   DefaultKeyMap(),
	}
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init probes the server; the cached conversation renders right away
// and reconciles once the probe lands.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, probeCmd(m.rec))
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ProbeResultMsg:
		return m.handleProbeResult(msg)

	case SessionLoadedMsg:
		return m.handleSessionLoaded(msg)

	case SessionCreatedMsg:
		return m.handleSessionCreated(msg)

	case ChatReplyMsg:
		return m.handleChatReply(msg)

	case ExportCompleteMsg:
		return m.handleExportComplete(msg)

	case ConfigReloadedMsg:
		return m.handleConfigReloaded(msg)

	case ErrorMsg:
		m.lastError = &msg
		m.state = StateError
		return m, nil

	case ErrorDismissMsg:
		m.lastError = nil
		m.state = StateReady
		m.input.Focus()
		return m, textinput.Blink

	case StatusExpireMsg:
		// Only clear if no newer status replaced it
		if msg.SetAt.Equal(m.statusSetAt) {
			m.statusMsg = ""
		}
		return m, nil

	case spinner.TickMsg:
		if m.state == StateSending {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	default:
		if m.state == StateReady {
			var inputCmd tea.Cmd
			m.input, inputCmd = m.input.Update(msg)
			cmds = append(cmds, inputCmd)
		}

		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		cmds = append(cmds, vpCmd)

		return m, tea.Batch(cmds...)
	}
}

// View renders the chat view.
func (m Model) View() string {
	return m.renderChat()
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	// Layout: header + session strip + viewport (dynamic) + input + status
	const (
		headerHeight    = 2
		sessionsHeight  = 2
		inputAreaHeight = 3
		statusBarHeight = 2
	)

	viewportHeight := m.height - headerHeight - sessionsHeight - inputAreaHeight - statusBarHeight
	if viewportHeight < 1 {
		viewportHeight = 1
	}
	viewportWidth := m.width
	if viewportWidth < 1 {
		viewportWidth = 1
	}

	m.viewport.Width = viewportWidth
	m.viewport.Height = viewportHeight

	const promptLen = 2 // "> "
	inputWidth := m.width - 6 - promptLen
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth

	if m.theme != nil {
		m.theme.SetSize(m.width, m.height)
	}

	m.updateViewport()

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, vpCmd
}

func (m Model) handleProbeResult(msg ProbeResultMsg) (tea.Model, tea.Cmd) {
	if !msg.Connected {
		m = m.setStatus("Server offline - showing cached conversations")
		m.updateViewport()
		return m, statusExpireCmd(m.statusSetAt)
	}

	// Reconcile the active session now that the server is reachable.
	// The cached copy stays on screen while the fetch runs.
	active := m.rec.Manager().Active()
	if active == "" {
		return m, nil
	}
	return m, loadSessionCmd(m.rec, active, reconcile.LoadOptions{ShowCachedFirst: true})
}

func (m Model) handleSessionLoaded(msg SessionLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m = m.setStatus("Could not sync session history")
		return m, statusExpireCmd(m.statusSetAt)
	}
	m.updateViewport()
	m.viewport.GotoBottom()
	return m, nil
}

func (m Model) handleSessionCreated(msg SessionCreatedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m = m.setStatus("Could not create session")
		return m, statusExpireCmd(m.statusSetAt)
	}
	m.updateViewport()
	m = m.setStatus("New session: " + msg.SessionID)
	return m, statusExpireCmd(m.statusSetAt)
}

func (m Model) handleChatReply(msg ChatReplyMsg) (tea.Model, tea.Cmd) {
	if msg.TempID != m.sendTempID {
		// A stale reply for a send that was already resolved
		return m, nil
	}

	if err := m.rec.CompleteSend(msg.TempID, msg.Reply, msg.Err); err != nil {
		m = m.setStatus("Could not record reply")
	}

	m.state = StateReady
	m.sendTempID = ""
	m.updateViewport()
	m.viewport.GotoBottom()
	m.input.Focus()
	return m, textinput.Blink
}

func (m Model) handleConfigReloaded(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.Config == nil {
		return m, nil
	}
	m.cfg = msg.Config
	m.theme = styles.NewTheme()
	m.updateViewport()
	m = m.setStatus("Configuration reloaded")
	return m, statusExpireCmd(m.statusSetAt)
}

func (m Model) handleExportComplete(msg ExportCompleteMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m = m.setStatus("Export failed: " + msg.Err.Error())
	} else {
		m = m.setStatus("Exported to " + msg.Path)
	}
	return m, statusExpireCmd(m.statusSetAt)
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := msg.String()

	// Quit works in any state
	if keyStr == "ctrl+c" || keyStr == "ctrl+q" {
		return m, tea.Quit
	}

	// Help overlay swallows keys until dismissed
	if m.showHelp {
		switch keyStr {
		case "?", "esc", "q", "enter":
			m.showHelp = false
		}
		return m, nil
	}

	if m.state == StateError {
		switch keyStr {
		case "esc", "enter", " ":
			m.lastError = nil
			m.state = StateReady
			m.input.Focus()
			return m, textinput.Blink
		}
		return m, nil
	}

	switch keyStr {
	case "ctrl+n":
		return m.createSession()

	case "tab":
		return m.switchSession(1)

	case "shift+tab":
		return m.switchSession(-1)

	case "ctrl+x":
		return m.deleteSession()

	case "ctrl+r":
		m.rec.Manager().SetAPIStatus(session.StatusChecking)
		m = m.setStatus("Checking server...")
		return m, tea.Batch(probeCmd(m.rec), statusExpireCmd(m.statusSetAt))

	case "ctrl+e":
		return m, exportCmd(m.rec, m.cfg.Storage.ExportDir)

	case "?":
		if m.input.Value() == "" {
			m.showHelp = true
			return m, nil
		}

	case "enter":
		if strings.TrimSpace(m.input.Value()) != "" {
			return m.submitInput()
		}
		return m, nil

	case "pgup", "ctrl+u":
		m.viewport.HalfViewUp()
		return m, nil

	case "pgdown", "ctrl+d":
		m.viewport.HalfViewDown()
		return m, nil

	case "up":
		m.viewport.LineUp(1)
		return m, nil

	case "down":
		m.viewport.LineDown(1)
		return m, nil

	case "home":
		m.viewport.GotoTop()
		return m, nil

	case "end":
		m.viewport.GotoBottom()
		return m, nil
	}

	// Forward to text input while ready
	if m.state == StateReady {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

// =============================================================================
// ACTIONS
// =============================================================================

// submitInput validates and starts a send. The optimistic user message
// and the thinking placeholder land in the transcript immediately; the
// reply resolves the placeholder when the round trip completes.
func (m Model) submitInput() (tea.Model, tea.Cmd) {
	text := m.input.Value()

	tempID, err := m.rec.BeginSend(text)
	if err != nil {
		switch {
		case errors.Is(err, reconcile.ErrDisconnected):
			m = m.setStatus("Server offline - press Ctrl+R to retry")
		case errors.Is(err, reconcile.ErrSendInFlight):
			m = m.setStatus("Still waiting for the previous reply")
		case errors.Is(err, reconcile.ErrBlankInput):
			return m, nil
		default:
			m = m.setStatus(err.Error())
		}
		return m, statusExpireCmd(m.statusSetAt)
	}

	sessionID := m.rec.Manager().Active()
	query := strings.TrimSpace(text)

	m.state = StateSending
	m.sendTempID = tempID
	m.thinkingStart = time.Now()
	m.input.Reset()
	m.updateViewport()
	m.viewport.GotoBottom()

	return m, tea.Batch(
		m.spinner.Tick,
		sendChatCmd(m.rec, tempID, sessionID, query),
	)
}

func (m Model) createSession() (tea.Model, tea.Cmd) {
	if m.state == StateSending {
		m = m.setStatus("Wait for the current reply first")
		return m, statusExpireCmd(m.statusSetAt)
	}
	id := session.NewSessionID()
	return m, createSessionCmd(m.rec, id)
}

// switchSession moves the active session by offset within the registry.
func (m Model) switchSession(offset int) (tea.Model, tea.Cmd) {
	if m.state == StateSending {
		return m, nil
	}

	mgr := m.rec.Manager()
	sessions := mgr.Sessions()
	if len(sessions) < 2 {
		return m, nil
	}

	active := mgr.Active()
	idx := 0
	for i, id := range sessions {
		if id == active {
			idx = i
			break
		}
	}
	next := sessions[((idx+offset)%len(sessions)+len(sessions))%len(sessions)]

	// Show the cached copy immediately, reconcile in the background
	mgr.SetActive(next)
	m.updateViewport()
	m.viewport.GotoBottom()
	return m, loadSessionCmd(m.rec, next, reconcile.LoadOptions{ShowCachedFirst: true})
}

func (m Model) deleteSession() (tea.Model, tea.Cmd) {
	if m.state == StateSending {
		return m, nil
	}

	mgr := m.rec.Manager()
	active := mgr.Active()
	if active == "" {
		return m, nil
	}

	if err := m.rec.Delete(active); err != nil {
		m = m.setStatus("Could not delete session")
		return m, statusExpireCmd(m.statusSetAt)
	}

	m.updateViewport()
	m = m.setStatus("Deleted " + active)

	// Reconcile whatever became active, if anything survived
	if next := mgr.Active(); next != "" && mgr.APIStatus() == session.StatusConnected {
		return m, tea.Batch(
			loadSessionCmd(m.rec, next, reconcile.LoadOptions{ShowCachedFirst: true}),
			statusExpireCmd(m.statusSetAt),
		)
	}
	return m, statusExpireCmd(m.statusSetAt)
}

// =============================================================================
// HELPERS
// =============================================================================

func (m Model) setStatus(text string) Model {
	m.statusMsg = text
	m.statusSetAt = time.Now()
	return m
}

func (m *Model) updateViewport() {
	m.viewport.SetContent(m.renderMessages())
}

// GetState returns the current state.
func (m *Model) GetState() State {
	return m.state
}

// Reconciler returns the underlying reconciler.
func (m *Model) Reconciler() *reconcile.Reconciler {
	return m.rec
}

// apiStatusLabel maps the manager status to a status bar label.
func (m Model) apiStatusLabel() string {
	switch m.rec.Manager().APIStatus() {
	case session.StatusConnected:
		return m.theme.StatusConnected.Render(styles.StatusIndicators.Connected + " connected")
	case session.StatusDisconnected:
		return m.theme.StatusDisconnected.Render(styles.StatusIndicators.Disconnected + " offline")
	default:
		return m.theme.StatusChecking.Render(styles.StatusIndicators.Checking + " checking")
	}
}
