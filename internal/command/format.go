package command

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/rentnest/nestchat/internal/core"
	"github.com/rentnest/nestchat/internal/types"
)

// formatMessage renders one message as a history line.
func formatMessage(msg types.Message, self types.ID) string {
	who := msg.SenderName
	if msg.SenderID == self {
		who = "you"
	}
	if who == "" {
		who = string(msg.SenderID)
	}

	var body string
	switch {
	case msg.IsDeleted:
		body = "(deleted)"
	case msg.Type == types.MessageTypeVoice:
		body = "[voice " + core.DurationLabel(msg.Duration) + "]"
	case msg.Type.IsAttachment():
		body = "[" + string(msg.Type) + "] " + attachmentName(msg)
		if meta := msg.FileMetadata; meta != nil && meta.Size > 0 {
			body += " (" + core.SizeLabel(meta.Size) + ")"
		}
	default:
		body = msg.Content
	}

	line := fmt.Sprintf("[%s] %s %s: %s", msg.Timestamp.Local().Format("2006-01-02 15:04"), msg.ID, who, body)
	if meta := msg.ReplyToMetadata; meta != nil {
		line += fmt.Sprintf("  ↪ %s", truncate(meta.Content, 40))
	}
	if msg.IsEdited && !msg.IsDeleted {
		line += " (edited)"
	}
	if msg.SenderID == self && msg.IsRead {
		line += " ✓✓"
	}
	return line
}

func attachmentName(msg types.Message) string {
	if meta := msg.FileMetadata; meta != nil && meta.Name != "" {
		return meta.Name
	}
	return msg.Content
}

// formatConversation renders one conversation list row.
func formatConversation(conv types.ConversationSummary) string {
	marker := "○"
	if conv.IsOnline {
		marker = "●"
	}
	name := conv.UserName
	if name == "" {
		name = string(conv.UserID)
	}
	line := fmt.Sprintf("%s %s (%s)", marker, name, conv.UserID)
	if conv.UnreadCount > 0 {
		line += fmt.Sprintf(" [%d unread]", conv.UnreadCount)
	}
	switch {
	case conv.BlockedByMe:
		line += " [blocked]"
	case conv.BlockedByOther:
		line += " [unavailable]"
	}
	if last := conv.LastMessage; last != nil {
		preview := last.Content
		switch {
		case last.IsDeleted:
			preview = "(deleted)"
		case last.Type.IsAttachment():
			preview = "[" + string(last.Type) + "]"
		}
		line += fmt.Sprintf("\n    %s · %s", truncate(preview, 60), humanize.Time(last.Timestamp))
	}
	return line
}

func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func formatPresence(p types.Presence) string {
	return fmt.Sprintf("%s: %s", p.UserID, core.PresenceLabel(p))
}
