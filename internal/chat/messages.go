package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/rentnest/nestchat/internal/core"
	"github.com/rentnest/nestchat/internal/store"
	"github.com/rentnest/nestchat/internal/types"
)

const (
	deletedPlaceholder = "This message was deleted"
	replyPreviewLen    = 60
)

func (m *Model) renderMessages() string {
	state := m.ctrl.State()
	width := m.mainWidth()
	if state.Peer.IsZero() {
		return lipgloss.NewStyle().Foreground(metaColor).Render("Select a conversation to start chatting.")
	}
	if len(state.Messages) == 0 {
		if state.Loading {
			return lipgloss.NewStyle().Foreground(metaColor).Render("Loading messages…")
		}
		return lipgloss.NewStyle().Foreground(metaColor).Render("No messages yet. Say hello!")
	}

	now := m.now()
	groups := store.GroupByDay(state.Messages, now.Location())
	chunks := make([]string, 0, len(state.Messages)+len(groups))
	for _, group := range groups {
		chunks = append(chunks, renderDayDivider(store.DayLabel(group.Day, now), width))
		for _, entry := range group.Entries {
			chunk := m.formatEntry(entry, width)
			chunks = append(chunks, m.zoneManager.Mark(messageZoneID(entry.Message.ID), chunk))
		}
	}
	return strings.Join(chunks, "\n")
}

func messageZoneID(id types.ID) string {
	return "msg-" + string(id)
}

func renderDayDivider(label string, width int) string {
	style := lipgloss.NewStyle().Foreground(dividerColor)
	text := " " + label + " "
	if width <= 0 {
		return style.Render("── " + label + " ──")
	}
	side := (width - ansi.StringWidth(text)) / 2
	if side < 2 {
		return lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(label))
	}
	line := strings.Repeat("─", side) + text + strings.Repeat("─", width-side-ansi.StringWidth(text))
	return style.Render(line)
}

// formatEntry renders one message bubble; own messages align right.
func (m *Model) formatEntry(entry store.Entry, width int) string {
	msg := entry.Message
	own := msg.SenderID == m.ctrl.Self()

	bubbleWidth := width * 3 / 4
	if bubbleWidth < 20 {
		bubbleWidth = width
	}

	var lines []string
	nameColor := colorForUser(msg.SenderID)
	name := msg.SenderName
	if own {
		nameColor = selfColor
		name = "You"
	}
	if name == "" {
		name = string(msg.SenderID)
	}
	header := lipgloss.NewStyle().Foreground(nameColor).Bold(true).Render(name) +
		lipgloss.NewStyle().Foreground(metaColor).Render(" "+msg.Timestamp.In(m.now().Location()).Format("15:04"))
	lines = append(lines, header)

	if preview := replyPreview(msg, m.ctrl.Self()); preview != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(metaColor).Italic(true).Render(preview))
	}

	bodyStyle := lipgloss.NewStyle().Foreground(textColor).Width(bubbleWidth)
	switch {
	case msg.IsDeleted:
		lines = append(lines, lipgloss.NewStyle().Foreground(metaColor).Italic(true).Render(deletedPlaceholder))
	case msg.Type.IsAttachment():
		lines = append(lines, bodyStyle.Render(attachmentLabel(msg)))
	default:
		lines = append(lines, bodyStyle.Render(msg.Content))
	}

	if footer := entryFooter(entry, own); footer != "" {
		style := lipgloss.NewStyle().Foreground(metaColor)
		if entry.Status == store.Failed {
			style = style.Foreground(errorColor)
		}
		lines = append(lines, style.Render(footer))
	}

	align := lipgloss.Left
	if own {
		align = lipgloss.Right
	}
	bubble := lipgloss.JoinVertical(align, lines...)
	if msg.ID == m.selectedID {
		bubble = lipgloss.NewStyle().Background(selectBg).Render(bubble)
	}
	if width <= 0 {
		return bubble
	}
	return lipgloss.PlaceHorizontal(width, align, bubble)
}

// replyPreview renders the quoted message a reply points at.
func replyPreview(msg types.Message, self types.ID) string {
	meta := msg.ReplyToMetadata
	if meta == nil {
		if msg.ReplyTo.IsZero() {
			return ""
		}
		return "↪ reply"
	}
	who := meta.SenderName
	if meta.SenderID == self {
		who = "You"
	}
	if who == "" {
		who = string(meta.SenderID)
	}
	content := meta.Content
	if meta.Type.IsAttachment() {
		content = "[" + string(meta.Type) + "]"
	}
	return "↪ " + who + ": " + truncateLine(content, replyPreviewLen)
}

func attachmentLabel(msg types.Message) string {
	label := "[" + string(msg.Type) + "]"
	name := msg.Content
	var size int64
	if meta := msg.FileMetadata; meta != nil {
		if meta.Name != "" {
			name = meta.Name
		}
		size = meta.Size
	}
	if msg.Type == types.MessageTypeVoice {
		return label + " voice note " + core.DurationLabel(msg.Duration)
	}
	if name != "" {
		label += " " + name
	}
	if size > 0 {
		label += " · " + core.SizeLabel(size)
	}
	return label
}

func entryFooter(entry store.Entry, own bool) string {
	var parts []string
	if entry.Message.IsEdited && !entry.Message.IsDeleted {
		parts = append(parts, "(edited)")
	}
	switch entry.Status {
	case store.Pending:
		if entry.Message.Type.IsAttachment() {
			parts = append(parts, fmt.Sprintf("uploading %d%%", int(entry.Progress*100)))
		} else {
			parts = append(parts, "sending…")
		}
	case store.Failed:
		parts = append(parts, "edit failed")
	case store.Confirmed:
		if own {
			if entry.Message.IsRead {
				parts = append(parts, "✓✓ read")
			} else {
				parts = append(parts, "✓")
			}
		}
	}
	return strings.Join(parts, " ")
}

func truncateLine(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if maxLen <= 0 || ansi.StringWidth(s) <= maxLen {
		return s
	}
	return ansi.Truncate(s, maxLen, "…")
}
