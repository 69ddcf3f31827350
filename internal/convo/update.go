package convo

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rentnest/nestchat/internal/api"
	"github.com/rentnest/nestchat/internal/store"
	"github.com/rentnest/nestchat/internal/types"
)

// Update applies a result or event message and returns follow-up work.
// Messages the controller does not own are ignored.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case EventMsg:
		return tea.Batch(c.handleEvent(msg.Event), c.WaitForEvent())
	case TransportClosedMsg:
		c.dispatch(store.Inbound{Event: types.Disconnected{}})
		return nil
	case ConversationsMsg:
		return c.handleConversations(msg)
	case ConversationMsg:
		return c.handleConversation(msg)
	case SendResultMsg:
		return c.handleSendResult(msg)
	case ProgressMsg:
		c.dispatch(store.UploadProgress{TempID: msg.TempID, Fraction: msg.Fraction})
		return waitProgress(msg.TempID, msg.next)
	case EditResultMsg:
		return c.handleEditResult(msg)
	case DeleteResultMsg:
		return c.handleDeleteResult(msg)
	case ReadResultMsg:
		if msg.Err != nil {
			c.opts.Logger.Debugw("mark read failed", "peer", msg.Peer, "error", msg.Err)
			return nil
		}
		return c.RefreshConversations()
	case BlockResultMsg:
		return c.handleBlockResult(msg)
	case ConversationDeletedMsg:
		if msg.Err != nil {
			c.setNotice("Could not delete conversation.", msg.Err)
			return nil
		}
		c.dispatch(store.Inbound{Event: types.ConversationDeleted{ConversationID: msg.ConversationID, UserID: c.opts.Self}})
		return c.RefreshConversations()
	case PresenceMsg:
		if msg.Err != nil {
			c.opts.Logger.Debugw("presence fetch failed", "error", msg.Err)
			return nil
		}
		p := msg.Presence
		c.dispatch(store.Inbound{Event: types.PresenceUpdate{UserID: p.UserID, IsOnline: p.IsOnline, LastSeen: p.LastSeen}})
		return nil
	}
	return nil
}

func (c *Controller) handleEvent(event any) tea.Cmd {
	before := c.state
	c.dispatch(store.Inbound{Event: event})

	switch ev := event.(type) {
	case types.Connected:
		c.opts.Logger.Infow("realtime channel connected")
		cmds := []tea.Cmd{c.RefreshConversations()}
		if peer := c.state.Peer; !peer.IsZero() {
			cmds = append(cmds,
				c.emit(types.IntentJoinConversation, types.RoomIntent{UserID: c.opts.Self, OtherUserID: peer}),
				c.Reload(),
			)
		}
		return tea.Batch(cmds...)
	case types.Disconnected:
		c.typingSent = false
		return nil
	case types.TypingIndicator:
		return nil
	case types.MessageReceived:
		var cmds []tea.Cmd
		if store.ConcernsOpen(before, ev.Message) {
			c.cacheSave(ev.Message)
			if ev.Message.SenderID == before.Peer {
				cmds = append(cmds, c.MarkRead(before.Peer))
			}
		}
		return tea.Batch(append(cmds, c.RefreshConversations())...)
	case types.MessageEdited:
		if e, ok := c.state.Find(ev.Message.ID); ok {
			c.cacheSave(e.Message)
		}
	case types.MessageDeleted:
		if e, ok := c.state.Find(ev.MessageID); ok {
			c.cacheSave(e.Message)
		}
	case types.ConversationDeleted:
		if !before.Peer.IsZero() && c.state.Peer.IsZero() {
			c.setNotice("This conversation was deleted.", nil)
		}
	}
	return c.RefreshConversations()
}

func (c *Controller) handleConversations(msg ConversationsMsg) tea.Cmd {
	if msg.Err != nil {
		c.opts.Logger.Warnw("conversation list fetch failed", "error", msg.Err)
		return nil
	}
	if msg.Cached {
		if len(c.state.Conversations) == 0 {
			c.state.Conversations = msg.Conversations
		}
		return nil
	}
	c.dispatch(store.ConversationsLoaded{Generation: msg.Generation, Conversations: msg.Conversations})
	if cache := c.opts.Cache; cache != nil && c.state.ListApplied() == msg.Generation {
		if err := cache.SaveConversations(c.state.Conversations); err != nil {
			c.opts.Logger.Debugw("cache conversations failed", "error", err)
		}
	}
	return nil
}

func (c *Controller) handleConversation(msg ConversationMsg) tea.Cmd {
	if msg.Cached {
		c.dispatch(store.Loaded{Generation: msg.Generation, Peer: msg.Peer, Messages: msg.Messages, Cached: true})
		return nil
	}
	if msg.Err != nil {
		if msg.Generation == c.state.Generation && msg.Peer == c.state.Peer {
			c.opts.Logger.Warnw("conversation fetch failed", "peer", msg.Peer, "error", msg.Err)
			c.setNotice("Could not load messages.", msg.Err)
		}
		c.dispatch(store.LoadFailed{Generation: msg.Generation, Peer: msg.Peer})
		return nil
	}
	before := c.state.Generation
	c.dispatch(store.Loaded{Generation: msg.Generation, Peer: msg.Peer, Messages: msg.Messages})
	if msg.Generation != before || msg.Peer != c.state.Peer {
		c.opts.Logger.Debugw("discarding stale conversation fetch", "peer", msg.Peer)
		return nil
	}
	if cache := c.opts.Cache; cache != nil {
		if err := cache.SaveMessages(msg.Peer, msg.Messages); err != nil {
			c.opts.Logger.Debugw("cache messages failed", "peer", msg.Peer, "error", err)
		}
	}
	return c.MarkRead(msg.Peer)
}

func (c *Controller) handleSendResult(msg SendResultMsg) tea.Cmd {
	if msg.Err != nil {
		c.dispatch(store.SendFailed{TempID: msg.TempID})
		c.opts.Logger.Warnw("send failed", "peer", msg.Peer, "error", msg.Err)
		if api.IsBlocked(msg.Err) {
			c.setNotice(BlockedNotice, msg.Err)
		} else {
			c.setNotice("Message not sent.", msg.Err)
		}
		return c.RefreshConversations()
	}
	confirmed := msg.Message
	if confirmed.ID.IsZero() {
		c.dispatch(store.SendFailed{TempID: msg.TempID})
		c.setNotice("Message not sent.", errEmptyResponse)
		return c.RefreshConversations()
	}
	c.dispatch(store.SendConfirmed{TempID: msg.TempID, Message: confirmed})
	if msg.Peer == c.state.Peer {
		c.cacheSave(confirmed)
	}
	return c.RefreshConversations()
}

func (c *Controller) handleEditResult(msg EditResultMsg) tea.Cmd {
	if msg.Err != nil {
		c.dispatch(store.EditFailed{ID: msg.ID})
		c.setNotice("Edit failed.", msg.Err)
		return nil
	}
	updated := msg.Message
	if updated.ID.IsZero() {
		e, ok := c.state.Find(msg.ID)
		if !ok {
			return c.RefreshConversations()
		}
		updated = e.Message
	}
	c.dispatch(store.EditConfirmed{Message: updated})
	if e, ok := c.state.Find(msg.ID); ok {
		c.cacheSave(e.Message)
	}
	return c.RefreshConversations()
}

func (c *Controller) handleDeleteResult(msg DeleteResultMsg) tea.Cmd {
	if msg.Err != nil {
		c.setNotice("Delete failed.", msg.Err)
		if msg.Scope == types.DeleteForMe {
			return c.Reload()
		}
		return nil
	}
	if msg.Scope == types.DeleteForEveryone {
		c.dispatch(store.DeletedForEveryone{ID: msg.ID})
		if e, ok := c.state.Find(msg.ID); ok {
			c.cacheSave(e.Message)
		}
	}
	return c.RefreshConversations()
}

func (c *Controller) handleBlockResult(msg BlockResultMsg) tea.Cmd {
	if msg.Err != nil {
		if msg.Blocked {
			c.setNotice("Could not block user.", msg.Err)
		} else {
			c.setNotice("Could not unblock user.", msg.Err)
		}
		return nil
	}
	c.dispatch(store.Inbound{Event: types.BlockStatusChanged{BlockerID: c.opts.Self, BlockedID: msg.Peer, IsBlocked: msg.Blocked}})
	return c.RefreshConversations()
}

func (c *Controller) cacheSave(msg types.Message) {
	cache := c.opts.Cache
	if cache == nil || c.state.Peer.IsZero() {
		return
	}
	if err := cache.SaveMessage(c.state.Peer, msg); err != nil {
		c.opts.Logger.Debugw("cache message failed", "id", msg.ID, "error", err)
	}
}

func (c *Controller) cacheDelete(id types.ID) {
	if cache := c.opts.Cache; cache != nil {
		if err := cache.DeleteMessage(id); err != nil {
			c.opts.Logger.Debugw("cache delete failed", "id", id, "error", err)
		}
	}
}
