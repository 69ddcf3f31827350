package chat

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"

	"github.com/rentnest/nestchat/internal/store"
	"github.com/rentnest/nestchat/internal/types"
)

const notificationBodyLen = 100

func sendNotification(title, body string) error {
	return beeep.Notify(title, body, "")
}

// notifyInbound raises a desktop notification for a message that arrived in
// a conversation other than the open one.
func (m *Model) notifyInbound(event any) tea.Cmd {
	if m.notify == nil {
		return nil
	}
	received, ok := event.(types.MessageReceived)
	if !ok {
		return nil
	}
	state := m.ctrl.State()
	msg := received.Message
	if msg.SenderID == state.Self || store.ConcernsOpen(state, msg) {
		return nil
	}
	title, body := notificationText(msg)
	notify := m.notify
	log := m.log
	return func() tea.Msg {
		if err := notify(title, body); err != nil {
			log.Debugw("desktop notification failed", "error", err)
		}
		return nil
	}
}

func notificationText(msg types.Message) (string, string) {
	title := msg.SenderName
	if title == "" {
		title = string(msg.SenderID)
	}
	body := msg.Content
	if msg.Type.IsAttachment() {
		body = "Sent " + attachmentLabel(msg)
	}
	return title, truncateNotification(body, notificationBodyLen)
}

func truncateNotification(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
