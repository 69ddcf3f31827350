package chat

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rentnest/nestchat/internal/api"
	"github.com/rentnest/nestchat/internal/convo"
	"github.com/rentnest/nestchat/internal/types"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSizeMsg(msg)
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.MouseMsg:
		return m.handleMouseMsg(msg)
	case recordingTickMsg:
		return m, m.handleRecordingTick()
	case sessionEndedMsg:
		m.log.Infow("session changed, leaving chat")
		return m, tea.Quit
	case convo.EventMsg, convo.TransportClosedMsg, convo.ConversationsMsg, convo.ConversationMsg,
		convo.SendResultMsg, convo.ProgressMsg, convo.EditResultMsg, convo.DeleteResultMsg,
		convo.ReadResultMsg, convo.BlockResultMsg, convo.ConversationDeletedMsg, convo.PresenceMsg:
		return m, m.applyControllerMsg(msg)
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m *Model) handleWindowSizeMsg(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.resize()
	return m, nil
}

// applyControllerMsg feeds a result or event to the controller and keeps the
// viewport pinned to the tail when it already was near it.
func (m *Model) applyControllerMsg(msg tea.Msg) tea.Cmd {
	follow := m.nearBottom()
	before := m.ctrl.State()
	cmds := []tea.Cmd{m.ctrl.Update(msg)}
	if ev, ok := msg.(convo.EventMsg); ok {
		cmds = append(cmds, m.notifyInbound(ev.Event))
	}
	after := m.ctrl.State()

	if !m.selectedID.IsZero() {
		if _, ok := after.Find(m.selectedID); !ok {
			m.exitSelection()
		}
	}
	if !m.editingID.IsZero() {
		if _, ok := after.Find(m.editingID); !ok {
			m.cancelEdit()
		}
	}
	if before.Connected != after.Connected {
		m.resize()
	}

	scroll := follow && len(after.Messages) > len(before.Messages)
	if m.initialLoad && before.Loading && !after.Loading {
		scroll = true
		m.initialLoad = false
	}
	if m.initialLoad && len(after.Messages) > 0 && len(before.Messages) == 0 {
		scroll = true
	}
	m.refreshViewport(scroll)
	return tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.recording != nil {
		return m, m.handleRecordingKeys(msg)
	}
	if m.deleteMenu != nil {
		return m, m.handleDeleteMenuKeys(msg)
	}
	if handled, cmd := m.handleSidebarKeys(msg); handled {
		return m, cmd
	}
	if handled, cmd := m.handleSelectionKeys(msg); handled {
		return m, cmd
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() != "" || m.ctrl.ReplyTarget() != nil || !m.editingID.IsZero() {
			m.input.Reset()
			m.ctrl.CancelReply()
			m.cancelEdit()
			m.resize()
			return m, m.ctrl.Typing(false)
		}
		return m, tea.Quit
	case tea.KeyEsc:
		switch {
		case !m.editingID.IsZero():
			m.cancelEdit()
			m.input.Reset()
		case m.ctrl.ReplyTarget() != nil:
			m.ctrl.CancelReply()
		default:
			m.ctrl.ClearNotice()
			m.status = ""
		}
		m.resize()
		return m, nil
	case tea.KeyTab:
		if m.sidebarOpen {
			m.focus = focusSidebar
			m.input.Blur()
		}
		return m, nil
	case tea.KeyCtrlB:
		m.toggleSidebar()
		return m, nil
	case tea.KeyCtrlR:
		return m, m.startRecording()
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case tea.KeyUp:
		if m.input.Value() == "" {
			m.enterSelection()
			return m, nil
		}
	case tea.KeyEnter:
		return m, m.submit()
	}

	prev := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	value := m.input.Value()
	cmds := []tea.Cmd{cmd}
	if value != prev {
		if m.editingID.IsZero() {
			cmds = append(cmds, m.ctrl.Typing(strings.TrimSpace(value) != ""))
		}
		m.resize()
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
		for _, conv := range m.visibleConversations() {
			if m.zoneManager.Get(conversationZoneID(conv.UserID)).InBounds(msg) {
				return m, m.openConversation(conv.UserID)
			}
		}
		for _, entry := range m.ctrl.State().Messages {
			if m.zoneManager.Get(messageZoneID(entry.Message.ID)).InBounds(msg) {
				m.selectMessage(entry.Message.ID)
				return m, nil
			}
		}
	}
	isWheel := msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown
	if isWheel && m.sidebarOpen && msg.X < m.sidebarWidth() {
		if msg.Button == tea.MouseButtonWheelUp {
			m.sidebarScroll--
		} else {
			m.sidebarScroll++
		}
		maxScroll := len(m.visibleConversations()) - m.sidebarVisibleRows()
		if m.sidebarScroll > maxScroll {
			m.sidebarScroll = maxScroll
		}
		if m.sidebarScroll < 0 {
			m.sidebarScroll = 0
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) focusComposer() {
	m.focus = focusComposer
	m.filterActive = false
	m.filter.Blur()
	m.input.Focus()
}

// submit sends the composer content, or saves it when editing. Lines
// starting with a slash are composer commands.
func (m *Model) submit() tea.Cmd {
	value := strings.TrimSpace(m.input.Value())
	if value == "" {
		return nil
	}
	if !m.editingID.IsZero() {
		cmd, err := m.ctrl.Edit(m.editingID, value)
		if err != nil {
			m.status = "Cannot edit this message."
			return nil
		}
		m.cancelEdit()
		m.input.Reset()
		m.resize()
		m.refreshViewport(false)
		return cmd
	}
	if strings.HasPrefix(value, "/") {
		cmd, ok := m.runComposerCommand(value)
		if ok {
			m.input.Reset()
			m.resize()
			return cmd
		}
	}

	follow := m.nearBottom()
	cmd, err := m.ctrl.Send(value)
	if err != nil {
		m.status = composeErrorText(err)
		return nil
	}
	m.status = ""
	m.input.Reset()
	m.resize()
	m.refreshViewport(follow)
	return cmd
}

// runComposerCommand handles /attach, /block, /unblock and /delete.
func (m *Model) runComposerCommand(value string) (tea.Cmd, bool) {
	name, arg, _ := strings.Cut(strings.TrimPrefix(value, "/"), " ")
	arg = strings.TrimSpace(arg)
	state := m.ctrl.State()
	switch name {
	case "attach":
		if arg == "" {
			m.status = "usage: /attach <path>"
			return nil, true
		}
		follow := m.nearBottom()
		cmd, err := m.ctrl.SendAttachment(expandHome(arg), "", 0)
		if err != nil {
			m.status = composeErrorText(err)
			return nil, true
		}
		m.refreshViewport(follow)
		return cmd, true
	case "block", "unblock":
		if state.Peer.IsZero() {
			m.status = composeErrorText(convo.ErrNoConversation)
			return nil, true
		}
		return m.ctrl.SetBlocked(state.Peer, name == "block"), true
	case "delete":
		summary, ok := state.Summary(state.Peer)
		if !ok || summary.ConversationID.IsZero() {
			m.status = "Nothing to delete."
			return nil, true
		}
		return m.ctrl.DeleteConversation(summary.ConversationID), true
	case "voice":
		return m.startRecording(), true
	}
	return nil, false
}

func composeErrorText(err error) string {
	switch {
	case errors.Is(err, convo.ErrDisconnected):
		return "Not connected. Waiting to reconnect…"
	case errors.Is(err, convo.ErrBlockedConversation):
		return convo.BlockedNotice
	case errors.Is(err, convo.ErrNoConversation):
		return "Open a conversation first."
	case errors.Is(err, api.ErrAttachmentTooLarge):
		return "File is too large (25 MB max)."
	}
	return err.Error()
}

// composerDisabledReason explains why the composer does not accept input.
func (m *Model) composerDisabledReason() string {
	err := m.ctrl.CanCompose()
	if err == nil {
		return ""
	}
	return composeErrorText(err)
}

func (m *Model) cancelEdit() {
	if m.editingID.IsZero() {
		return
	}
	m.editingID = ""
	applyInputStyles(&m.input, textColor, blurText)
}

func (m *Model) beginEdit(id types.ID) {
	entry, ok := m.ctrl.State().Find(id)
	if !ok || entry.Message.SenderID != m.ctrl.Self() || entry.Message.IsDeleted || entry.Message.IsTemp() {
		m.status = "Only your own sent messages can be edited."
		return
	}
	m.editingID = id
	m.ctrl.CancelReply()
	m.input.SetValue(entry.Message.Content)
	m.input.CursorEnd()
	applyInputStyles(&m.input, caretColor, blurText)
	m.focusComposer()
	m.resize()
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
