package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/rentnest/nestchat/internal/core"
)

func (m *Model) View() string {
	statusLine := m.statusLine()

	lines := []string{m.renderHeader(), m.viewport.View(), m.renderTyping()}
	switch {
	case m.recording != nil:
		lines = append(lines, m.renderRecordingModal())
	case m.deleteMenu != nil:
		lines = append(lines, m.renderDeleteMenu())
	default:
		lines = append(lines, m.renderInput())
	}
	lines = append(lines, statusLine)

	main := lipgloss.JoinVertical(lipgloss.Left, lines...)
	output := main
	if m.sidebarOpen {
		output = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), main)
	}
	return m.zoneManager.Scan(output)
}

func (m *Model) renderHeader() string {
	state := m.ctrl.State()
	width := m.mainWidth()

	title := "nestchat"
	presence := ""
	if !state.Peer.IsZero() {
		title = string(state.Peer)
		if summary, ok := state.Summary(state.Peer); ok && summary.UserName != "" {
			title = summary.UserName
		}
		presence = core.PresenceLabel(state.PeerPresence())
	}
	left := lipgloss.NewStyle().Bold(true).Foreground(textColor).Render(title)
	if presence != "" {
		color := metaColor
		if state.PeerPresence().IsOnline {
			color = onlineColor
		}
		left += " " + lipgloss.NewStyle().Foreground(color).Render(presence)
	}
	header := alignStatusLine(left, lipgloss.NewStyle().Foreground(metaColor).Render(m.selfName), width)

	if state.Connected {
		return header
	}
	banner := lipgloss.NewStyle().Background(bannerBg).Foreground(lipgloss.Color("231")).Padding(0, 1)
	if width > 0 {
		banner = banner.Width(width)
	}
	return header + "\n" + banner.Render("Disconnected. Reconnecting…")
}

func (m *Model) renderTyping() string {
	state := m.ctrl.State()
	if !state.PeerTyping {
		return ""
	}
	name := string(state.Peer)
	if summary, ok := state.Summary(state.Peer); ok && summary.UserName != "" {
		name = summary.UserName
	}
	return lipgloss.NewStyle().Foreground(metaColor).Italic(true).Render(name + " is typing…")
}

func (m *Model) renderInput() string {
	var parts []string
	if preview := m.renderComposerContext(); preview != "" {
		parts = append(parts, preview)
	}

	style := lipgloss.NewStyle().Background(inputBg).Padding(0, inputPadding, 0, 0)
	if width := m.mainWidth(); width > 0 {
		style = style.Width(width)
	}
	content := m.input.View()
	if reason := m.composerDisabledReason(); reason != "" && m.ctrl.State().Peer != "" {
		content = lipgloss.NewStyle().Foreground(blurText).Background(inputBg).Render("  " + reason)
	}
	blank := style.Render("")
	parts = append(parts, blank, style.Render(content), blank)
	return strings.Join(parts, "\n")
}

// renderComposerContext shows the reply target or the message being edited.
func (m *Model) renderComposerContext() string {
	previewStyle := lipgloss.NewStyle().Foreground(metaColor).Italic(true)
	if !m.editingID.IsZero() {
		return previewStyle.Render("✎ Editing message · esc to cancel")
	}
	target := m.ctrl.ReplyTarget()
	if target == nil {
		return ""
	}
	who := target.SenderName
	if target.SenderID == m.ctrl.Self() {
		who = "yourself"
	}
	content := target.Content
	if target.Type.IsAttachment() {
		content = "[" + string(target.Type) + "]"
	}
	return previewStyle.Render("↪ Replying to " + who + ": " + truncateLine(content, replyPreviewLen) + " · esc to cancel")
}

func (m *Model) renderDeleteMenu() string {
	options := "m: delete for me"
	if m.deleteMenu.canEveryone {
		options += " · e: delete for everyone"
	}
	options += " · esc: cancel"
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(errorColor).
		Padding(0, 2).
		Render("Delete message?\n" + lipgloss.NewStyle().Foreground(metaColor).Render(options))
}

func (m *Model) statusLine() string {
	left := m.status
	style := lipgloss.NewStyle().Foreground(statusColor)
	if notice := m.ctrl.Notice(); notice != nil {
		left = notice.Text
		if notice.Err != nil {
			style = style.Foreground(errorColor)
		}
	}
	right := m.keyHints()
	return style.Render(alignStatusLine(left, right, m.mainWidth()))
}

func (m *Model) keyHints() string {
	switch m.focus {
	case focusSidebar:
		return "enter open · / filter · tab back"
	case focusMessages:
		return "r reply · e edit · d delete · y copy · esc back"
	}
	if m.input.Value() == "" {
		return "tab conversations · ↑ select · ctrl+r voice"
	}
	return "enter send · ctrl+j newline"
}

func alignStatusLine(left, right string, width int) string {
	if width <= 0 || right == "" {
		return left
	}
	leftWidth := ansi.StringWidth(left)
	rightWidth := ansi.StringWidth(right)
	if leftWidth+rightWidth+1 > width {
		return left
	}
	spaces := width - leftWidth - rightWidth
	return left + strings.Repeat(" ", spaces) + right
}
