package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rentnest/nestchat/internal/types"
)

// enterSelection selects the newest message.
func (m *Model) enterSelection() {
	msgs := m.ctrl.State().Messages
	if len(msgs) == 0 {
		return
	}
	m.selectMessage(msgs[len(msgs)-1].Message.ID)
}

func (m *Model) selectMessage(id types.ID) {
	m.selectedID = id
	m.focus = focusMessages
	m.input.Blur()
	m.refreshViewport(false)
}

func (m *Model) exitSelection() {
	if m.selectedID.IsZero() && m.focus != focusMessages {
		return
	}
	m.selectedID = ""
	if m.focus == focusMessages {
		m.focusComposer()
	}
	m.refreshViewport(false)
}

func (m *Model) moveSelection(delta int) {
	state := m.ctrl.State()
	i := state.Index(m.selectedID)
	if i < 0 {
		return
	}
	i += delta
	if i < 0 || i >= len(state.Messages) {
		return
	}
	m.selectedID = state.Messages[i].Message.ID
	m.refreshViewport(false)
}

func (m *Model) handleSelectionKeys(msg tea.KeyMsg) (bool, tea.Cmd) {
	if m.focus != focusMessages {
		return false, nil
	}
	entry, ok := m.ctrl.State().Find(m.selectedID)
	if !ok {
		m.exitSelection()
		return true, nil
	}
	switch msg.String() {
	case "up", "k":
		m.moveSelection(-1)
	case "down", "j":
		m.moveSelection(1)
	case "esc", "q":
		m.exitSelection()
	case "r":
		if err := m.ctrl.StartReply(m.selectedID); err != nil {
			m.status = "Cannot reply to this message."
			return true, nil
		}
		m.exitSelection()
		m.resize()
	case "e":
		id := m.selectedID
		m.selectedID = ""
		m.beginEdit(id)
		m.refreshViewport(false)
	case "d", "delete", "backspace":
		if entry.Message.IsTemp() {
			m.status = "Message is still sending."
			return true, nil
		}
		m.deleteMenu = &deleteMenu{
			id:          entry.Message.ID,
			canEveryone: entry.Message.SenderID == m.ctrl.Self() && !entry.Message.IsDeleted,
		}
		m.resize()
	case "y", "c":
		text := entry.Message.Content
		if entry.Message.IsDeleted {
			text = ""
		}
		if text == "" {
			m.status = "Nothing to copy."
			return true, nil
		}
		if err := copyToClipboard(text); err != nil {
			m.log.Debugw("clipboard write failed", "error", err)
			m.status = "Copy failed: " + err.Error()
			return true, nil
		}
		m.status = "Copied to clipboard."
	}
	return true, nil
}

func (m *Model) handleDeleteMenuKeys(msg tea.KeyMsg) tea.Cmd {
	menu := m.deleteMenu
	var scope types.DeleteScope
	switch msg.String() {
	case "m", "1":
		scope = types.DeleteForMe
	case "e", "2":
		if !menu.canEveryone {
			return nil
		}
		scope = types.DeleteForEveryone
	case "esc", "q", "n":
		m.deleteMenu = nil
		m.resize()
		return nil
	default:
		return nil
	}
	m.deleteMenu = nil
	m.resize()
	cmd, err := m.ctrl.Delete(menu.id, scope)
	if err != nil {
		m.status = "Cannot delete this message."
		return nil
	}
	if scope == types.DeleteForMe {
		m.exitSelection()
	}
	m.refreshViewport(false)
	return cmd
}
