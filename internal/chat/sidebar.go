package chat

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rentnest/nestchat/internal/db"
	"github.com/rentnest/nestchat/internal/types"
)

const sidebarRowHeight = 2

func conversationZoneID(id types.ID) string {
	return "conv-" + string(id)
}

// visibleConversations applies the sidebar filter. An invalid pattern
// filters nothing.
func (m *Model) visibleConversations() []types.ConversationSummary {
	all := m.ctrl.State().Conversations
	pattern := strings.TrimSpace(m.filter.Value())
	if pattern == "" {
		return all
	}
	matcher, err := db.CompileNameFilter(pattern)
	if err != nil {
		return all
	}
	out := make([]types.ConversationSummary, 0, len(all))
	for _, conv := range all {
		if matcher.Match(strings.ToLower(conv.UserName)) {
			out = append(out, conv)
		}
	}
	return out
}

func (m *Model) sidebarVisibleRows() int {
	rows := (m.height - 3) / sidebarRowHeight
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *Model) clampSidebar(count int) {
	if m.sidebarIndex >= count {
		m.sidebarIndex = count - 1
	}
	if m.sidebarIndex < 0 {
		m.sidebarIndex = 0
	}
	rows := m.sidebarVisibleRows()
	if m.sidebarIndex < m.sidebarScroll {
		m.sidebarScroll = m.sidebarIndex
	}
	if m.sidebarIndex >= m.sidebarScroll+rows {
		m.sidebarScroll = m.sidebarIndex - rows + 1
	}
	if m.sidebarScroll < 0 {
		m.sidebarScroll = 0
	}
}

func (m *Model) renderSidebar() string {
	width := m.sidebarWidth()
	if width == 0 {
		return ""
	}
	inner := width - 2

	header := lipgloss.NewStyle().Bold(true).Foreground(textColor).Render("Conversations")
	var filterLine string
	if m.filterActive {
		filterLine = m.filter.View()
	} else if value := m.filter.Value(); value != "" {
		filterLine = lipgloss.NewStyle().Foreground(caretColor).Render("# " + value)
	} else {
		filterLine = lipgloss.NewStyle().Foreground(metaColor).Render("/ filter")
	}
	lines := []string{header, filterLine}

	convs := m.visibleConversations()
	m.clampSidebar(len(convs))
	if len(convs) == 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(metaColor).Render("No conversations"))
	}
	end := m.sidebarScroll + m.sidebarVisibleRows()
	if end > len(convs) {
		end = len(convs)
	}
	open := m.ctrl.State().Peer
	for i := m.sidebarScroll; i < end; i++ {
		row := renderConversationRow(convs[i], inner, convs[i].UserID == open)
		if m.focus == focusSidebar && i == m.sidebarIndex {
			row = lipgloss.NewStyle().Background(selectBg).Width(inner).Render(row)
		}
		lines = append(lines, m.zoneManager.Mark(conversationZoneID(convs[i].UserID), row))
	}

	style := lipgloss.NewStyle().
		Width(inner).
		Height(m.height).
		Padding(0, 1).
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(dividerColor)
	return style.Render(strings.Join(lines, "\n"))
}

func renderConversationRow(conv types.ConversationSummary, width int, open bool) string {
	marker := lipgloss.NewStyle().Foreground(metaColor).Render("○")
	if conv.IsOnline {
		marker = lipgloss.NewStyle().Foreground(onlineColor).Render("●")
	}
	name := conv.UserName
	if name == "" {
		name = string(conv.UserID)
	}
	nameStyle := lipgloss.NewStyle().Foreground(colorForUser(conv.UserID))
	if open {
		nameStyle = nameStyle.Bold(true)
	}

	var suffix string
	if conv.Blocked() {
		suffix += lipgloss.NewStyle().Foreground(errorColor).Render(" ⊘")
	}
	if conv.UnreadCount > 0 {
		suffix += " " + lipgloss.NewStyle().Background(unreadBg).Foreground(lipgloss.Color("231")).Render(fmt.Sprintf(" %d ", conv.UnreadCount))
	}
	nameWidth := width - 2 - lipgloss.Width(suffix)
	if nameWidth < 1 {
		nameWidth = 1
	}
	top := marker + " " + nameStyle.Render(truncateLine(name, nameWidth)) + suffix
	bottom := lipgloss.NewStyle().Foreground(metaColor).Render(truncateLine(lastMessagePreview(conv), width))
	return top + "\n" + bottom
}

func lastMessagePreview(conv types.ConversationSummary) string {
	last := conv.LastMessage
	switch {
	case last == nil:
		return ""
	case last.IsDeleted:
		return deletedPlaceholder
	case last.Type.IsAttachment():
		return "[" + string(last.Type) + "]"
	}
	return last.Content
}

func (m *Model) openSelectedConversation() tea.Cmd {
	convs := m.visibleConversations()
	if m.sidebarIndex < 0 || m.sidebarIndex >= len(convs) {
		return nil
	}
	return m.openConversation(convs[m.sidebarIndex].UserID)
}

func (m *Model) openConversation(peer types.ID) tea.Cmd {
	if peer == m.ctrl.State().Peer {
		m.focusComposer()
		return nil
	}
	m.exitSelection()
	m.cancelEdit()
	m.ctrl.CancelReply()
	m.input.Reset()
	m.initialLoad = true
	cmd := m.ctrl.Open(peer)
	m.focusComposer()
	m.resize()
	m.refreshViewport(true)
	return cmd
}

func (m *Model) handleSidebarKeys(msg tea.KeyMsg) (bool, tea.Cmd) {
	if m.focus != focusSidebar {
		return false, nil
	}
	if m.filterActive {
		switch msg.Type {
		case tea.KeyEsc:
			m.filterActive = false
			m.filter.Blur()
			m.filter.Reset()
			return true, nil
		case tea.KeyEnter:
			m.filterActive = false
			m.filter.Blur()
			return true, m.openSelectedConversation()
		case tea.KeyUp, tea.KeyDown:
		default:
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.sidebarIndex = 0
			m.sidebarScroll = 0
			return true, cmd
		}
	}
	switch msg.String() {
	case "up", "k":
		m.sidebarIndex--
		m.clampSidebar(len(m.visibleConversations()))
		return true, nil
	case "down", "j":
		m.sidebarIndex++
		m.clampSidebar(len(m.visibleConversations()))
		return true, nil
	case "enter":
		return true, m.openSelectedConversation()
	case "/":
		m.filterActive = true
		return true, m.filter.Focus()
	case "esc", "tab":
		if m.filter.Value() != "" && msg.String() == "esc" {
			m.filter.Reset()
			return true, nil
		}
		m.focusComposer()
		return true, nil
	}
	return true, nil
}
