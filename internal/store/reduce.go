package store

import (
	"time"

	"github.com/rentnest/nestchat/internal/types"
)

// Action is an input to Reduce.
type Action interface {
	action()
}

type (
	// Selected opens a conversation.
	Selected struct{ Peer types.ID }
	// Loaded delivers a conversation fetch made under Generation. Cached
	// results only fill an empty view.
	Loaded struct {
		Generation uint64
		Peer       types.ID
		Messages   []types.Message
		Cached     bool
	}
	// LoadFailed ends loading after a failed fetch.
	LoadFailed struct {
		Generation uint64
		Peer       types.ID
	}
	// Sent appends an optimistic message.
	Sent struct{ Message types.Message }
	// SendConfirmed carries the server record of a pending send.
	SendConfirmed struct {
		TempID  types.ID
		Message types.Message
	}
	// SendFailed rolls back a pending send.
	SendFailed struct{ TempID types.ID }
	// UploadProgress updates a pending attachment.
	UploadProgress struct {
		TempID   types.ID
		Fraction float64
	}
	// Inbound wraps a realtime event.
	Inbound struct{ Event any }
	// DeletedForEveryone marks a message deleted in place.
	DeletedForEveryone struct{ ID types.ID }
	// DeletedForMe removes a message locally.
	DeletedForMe struct{ ID types.ID }
	// EditStarted swaps content optimistically.
	EditStarted struct {
		ID      types.ID
		Content string
		At      time.Time
	}
	// EditConfirmed applies the server's edited record.
	EditConfirmed struct{ Message types.Message }
	// EditFailed reverts an optimistic edit.
	EditFailed struct{ ID types.ID }
	// ConversationsLoaded delivers a conversation list fetch.
	ConversationsLoaded struct {
		Generation    uint64
		Conversations []types.ConversationSummary
	}
)

func (Selected) action()            {}
func (Loaded) action()              {}
func (LoadFailed) action()          {}
func (Sent) action()                {}
func (SendConfirmed) action()       {}
func (SendFailed) action()          {}
func (UploadProgress) action()      {}
func (Inbound) action()             {}
func (DeletedForEveryone) action()  {}
func (DeletedForMe) action()        {}
func (EditStarted) action()         {}
func (EditConfirmed) action()       {}
func (EditFailed) action()          {}
func (ConversationsLoaded) action() {}

// Reduce returns the state after applying a.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case Selected:
		return Select(s, a.Peer)
	case Loaded:
		if a.Cached {
			return LoadCached(s, a.Generation, a.Peer, a.Messages)
		}
		return LoadConversation(s, a.Generation, a.Peer, a.Messages)
	case LoadFailed:
		return loadFailed(s, a.Generation, a.Peer)
	case Sent:
		return AppendOptimistic(s, a.Message)
	case SendConfirmed:
		return ReconcileConfirmed(s, a.TempID, a.Message)
	case SendFailed:
		return Rollback(s, a.TempID)
	case UploadProgress:
		return SetProgress(s, a.TempID, a.Fraction)
	case Inbound:
		return ApplyInbound(s, a.Event)
	case DeletedForEveryone:
		return MarkDeleted(s, a.ID)
	case DeletedForMe:
		return RemoveLocal(s, a.ID)
	case EditStarted:
		return BeginEdit(s, a.ID, a.Content, a.At)
	case EditConfirmed:
		return ApplyEdit(s, a.Message)
	case EditFailed:
		return RevertEdit(s, a.ID)
	case ConversationsLoaded:
		return SetConversations(s, a.Generation, a.Conversations)
	}
	return s
}
