// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file contains all rendering logic for the chat interface:
// the main layout, message bubbles, the session strip, input area,
// status bar, and the help overlay.

package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/querychat-tui/internal/model"
	"github.com/jeranaias/querychat-tui/internal/util"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the shared glamour renderer for agent replies.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fall back to plain text if the renderer cannot initialize
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown content for terminal display.
// Returns the original content if rendering fails.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	out, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(out)
}

// =============================================================================
// MAIN RENDER
// =============================================================================

// renderChat renders the complete chat view.
// Layout: header + session strip + transcript (viewport) + input + status.
func (m Model) renderChat() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelpOverlay()
	}

	header := m.renderHeader()
	sessions := m.renderSessionStrip()
	input := m.renderInput()
	status := m.renderStatusBar()

	headerHeight := lipgloss.Height(header)
	sessionsHeight := lipgloss.Height(sessions)
	inputHeight := lipgloss.Height(input)
	statusHeight := lipgloss.Height(status)

	availableHeight := m.height - headerHeight - sessionsHeight - inputHeight - statusHeight
	if availableHeight < 1 {
		availableHeight = 1
	}

	transcript := m.viewport.View()
	if lipgloss.Height(transcript) != availableHeight {
		transcript = lipgloss.NewStyle().
			Height(availableHeight).
			MaxHeight(availableHeight).
			Width(m.width).
			Render(transcript)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		sessions,
		transcript,
		input,
		status,
	)
}

// =============================================================================
// COMPONENTS
// =============================================================================

func (m Model) renderHeader() string {
	title := m.theme.HeaderBrand.Render("querychat")
	sub := m.theme.ShortcutDesc.Render("  SQL agent terminal")
	line := title + sub

	return lipgloss.NewStyle().
		Width(m.width).
		Background(m.theme.Header.GetBackground()).
		Padding(0, 1).
		Render(line)
}

// renderSessionStrip renders the horizontal session selector.
func (m Model) renderSessionStrip() string {
	mgr := m.rec.Manager()
	sessions := mgr.Sessions()
	active := mgr.Active()

	if len(sessions) == 0 {
		return m.theme.SessionMeta.Render(" no sessions")
	}

	var parts []string
	for _, id := range sessions {
		label := sessionLabel(id)
		if id == active {
			parts = append(parts, m.theme.SessionItemSelected.Render(label))
		} else {
			parts = append(parts, m.theme.SessionItem.Render(label))
		}
	}

	strip := strings.Join(parts, " ")
	return util.TruncateWidth(strip, m.width)
}

// sessionLabel shortens a session id for display.
// "session_1700000000000" renders as "1700000000000".
func sessionLabel(id string) string {
	if rest, ok := strings.CutPrefix(id, "session_"); ok && rest != "" {
		return rest
	}
	return id
}

// renderMessages renders the conversation transcript.
func (m Model) renderMessages() string {
	mgr := m.rec.Manager()
	active := mgr.Active()
	history := mgr.History(active)

	if len(history) == 0 {
		return m.renderWelcome()
	}

	contentWidth := m.width - 12
	if contentWidth < 30 {
		contentWidth = 30
	}

	var b strings.Builder
	for _, msg := range history {
		b.WriteString(m.renderMessage(msg, contentWidth))
		b.WriteString("\n\n")
	}
	return b.String()
}

// renderMessage renders one message bubble.
func (m Model) renderMessage(msg model.Message, contentWidth int) string {
	if msg.IsPlaceholder() {
		return m.renderThinking()
	}

	label := msg.Sender.DisplayName()
	text := msg.Text

	switch msg.Sender {
	case model.SenderUser:
		header := m.theme.ShortcutKey.Render(label)
		bubble := m.theme.UserBubble.MaxWidth(contentWidth).Render(text)
		return lipgloss.JoinVertical(lipgloss.Right, header, bubble)

	default:
		if m.cfg != nil && m.cfg.UI.RenderMarkdown {
			text = renderMarkdown(text)
		}
		header := m.theme.HeaderTitle.Render(label)
		bubble := m.theme.AgentBubble.MaxWidth(contentWidth).Render(text)
		return lipgloss.JoinVertical(lipgloss.Left, header, bubble)
	}
}

// renderThinking renders the in-flight placeholder row.
func (m Model) renderThinking() string {
	elapsed := ""
	if !m.thinkingStart.IsZero() {
		elapsed = fmt.Sprintf(" (%ds)", int(time.Since(m.thinkingStart).Seconds()))
	}
	return m.theme.Spinner.Render(m.spinner.View()) +
		m.theme.ThinkingText.Render(" Thinking..."+elapsed)
}

func (m Model) renderWelcome() string {
	info := []string{
		m.theme.WelcomeLogo.Render("querychat"),
		"",
		m.theme.WelcomeInfo.Render("Ask a question about your data to get started."),
		m.theme.ShortcutDesc.Render("Enter to send - Ctrl+N new session - ? for help"),
	}
	return m.theme.WelcomeBox.Render(strings.Join(info, "\n"))
}

func (m Model) renderInput() string {
	var line string
	if m.state == StateSending {
		line = m.theme.InputPlaceholder.Render("Waiting for reply...")
	} else {
		line = m.input.View()
	}

	return m.theme.InputContainer.
		Width(m.width - 2).
		Render(line)
}

func (m Model) renderStatusBar() string {
	left := m.apiStatusLabel()

	middle := ""
	if m.statusMsg != "" {
		middle = m.theme.ShortcutDesc.Render(" " + m.statusMsg)
	}

	right := m.theme.ShortcutDesc.Render("? help")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(middle) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}

	bar := left + middle + strings.Repeat(" ", gap) + right
	return m.theme.StatusBar.Width(m.width).Render(bar)
}

// =============================================================================
// HELP OVERLAY
// =============================================================================

func (m Model) renderHelpOverlay() string {
	var b strings.Builder
	b.WriteString(m.theme.HeaderTitle.Render("Keyboard shortcuts"))
	b.WriteString("\n\n")

	for _, group := range m.keyMap.FullHelp() {
		for _, binding := range group {
			help := binding.Help()
			key := m.theme.ShortcutKey.Render(util.PadRight(help.Key, 12))
			desc := m.theme.ShortcutDesc.Render(help.Desc)
			b.WriteString("  " + key + desc + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.theme.ShortcutDesc.Render("Press ? or Esc to close"))

	box := m.theme.SessionList.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
