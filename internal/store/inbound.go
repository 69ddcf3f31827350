package store

import (
	"github.com/rentnest/nestchat/internal/types"
)

// ApplyInbound merges one realtime event into the state. Events that do not
// concern the open conversation leave the message list untouched; the
// conversation list is refreshed separately.
func ApplyInbound(s State, event any) State {
	switch ev := event.(type) {
	case types.Connected:
		out := s
		out.Connected = true
		return out
	case types.Disconnected:
		out := s
		out.Connected = false
		out.PeerTyping = false
		return out
	case types.MessageReceived:
		return applyReceived(s, ev.Message)
	case types.MessageDeleted:
		return MarkDeleted(s, ev.MessageID)
	case types.MessageEdited:
		return ApplyEdit(s, ev.Message)
	case types.MessagesRead:
		return applyRead(s, ev)
	case types.PresenceUpdate:
		return applyPresence(s, ev)
	case types.TypingIndicator:
		if ev.SenderID != s.Peer || s.Peer.IsZero() || (!ev.ReceiverID.IsZero() && ev.ReceiverID != s.Self) {
			return s
		}
		out := s
		out.PeerTyping = ev.IsTyping
		return out
	case types.ConversationDeleted:
		return applyConversationDeleted(s, ev)
	case types.BlockStatusChanged:
		return applyBlock(s, ev)
	}
	return s
}

// ConcernsOpen reports whether msg belongs to the open conversation.
func ConcernsOpen(s State, msg types.Message) bool {
	return !s.Peer.IsZero() && msg.Between(s.Self, s.Peer)
}

func applyReceived(s State, msg types.Message) State {
	if !ConcernsOpen(s, msg) {
		return s
	}
	out := s.clone()
	entry := Entry{Message: msg.Clone(), Status: Confirmed}
	if msg.SenderID == s.Peer {
		out.PeerTyping = false
	}
	if i := s.Index(msg.ID); i >= 0 {
		out.Messages[i] = entry
		return out
	}
	if msg.ClientID != "" {
		if i := s.Index(types.ID(msg.ClientID)); i >= 0 && s.Messages[i].Status == Pending {
			out.Messages[i] = entry
			return out
		}
	}
	out.Messages = append(out.Messages, entry)
	return out
}

func applyRead(s State, ev types.MessagesRead) State {
	if ev.ReaderID.IsZero() || ev.ReaderID == s.Self {
		return s
	}
	only := make(map[types.ID]bool, len(ev.MessageIDs))
	for _, id := range ev.MessageIDs {
		only[id] = true
	}
	out := s.clone()
	for i, e := range out.Messages {
		m := e.Message
		if m.SenderID != s.Self || m.ReceiverID != ev.ReaderID || m.IsRead {
			continue
		}
		if len(only) > 0 && !only[m.ID] {
			continue
		}
		m = m.Clone()
		m.IsRead = true
		out.Messages[i].Message = m
	}
	return out
}

func applyPresence(s State, ev types.PresenceUpdate) State {
	if ev.UserID.IsZero() {
		return s
	}
	out := s.clone()
	if out.Presence == nil {
		out.Presence = make(map[types.ID]types.Presence)
	}
	out.Presence[ev.UserID] = types.Presence{UserID: ev.UserID, IsOnline: ev.IsOnline, LastSeen: ev.LastSeen}
	for i, c := range out.Conversations {
		if c.UserID == ev.UserID {
			out.Conversations[i].IsOnline = ev.IsOnline
			if ev.LastSeen != nil {
				out.Conversations[i].LastSeen = ev.LastSeen
			}
		}
	}
	if ev.UserID == s.Peer && !ev.IsOnline {
		out.PeerTyping = false
	}
	return out
}

func applyConversationDeleted(s State, ev types.ConversationDeleted) State {
	if ev.ConversationID.IsZero() {
		return s
	}
	out := s.clone()
	open := false
	kept := out.Conversations[:0]
	for _, c := range out.Conversations {
		if c.ConversationID == ev.ConversationID {
			open = open || c.UserID == s.Peer
			continue
		}
		kept = append(kept, c)
	}
	out.Conversations = kept
	for _, e := range s.Messages {
		if e.Message.ConversationID == ev.ConversationID {
			open = true
			break
		}
	}
	if open && !s.Peer.IsZero() {
		out = Select(out, "")
	}
	return out
}

func applyBlock(s State, ev types.BlockStatusChanged) State {
	var peer types.ID
	switch s.Self {
	case ev.BlockerID:
		peer = ev.BlockedID
	case ev.BlockedID:
		peer = ev.BlockerID
	default:
		return s
	}
	out := s.clone()
	for i, c := range out.Conversations {
		if c.UserID != peer {
			continue
		}
		if s.Self == ev.BlockerID {
			out.Conversations[i].BlockedByMe = ev.IsBlocked
		} else {
			out.Conversations[i].BlockedByOther = ev.IsBlocked
		}
	}
	return out
}
