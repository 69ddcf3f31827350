package convo

import (
	"github.com/rentnest/nestchat/internal/types"
)

// EventMsg carries one realtime event from the transport.
type EventMsg struct {
	Event any
}

// TransportClosedMsg is delivered once the transport's event stream ends.
type TransportClosedMsg struct{}

// ConversationsMsg is the result of a conversation list fetch.
type ConversationsMsg struct {
	Generation    uint64
	Conversations []types.ConversationSummary
	Cached        bool
	Err           error
}

// ConversationMsg is the result of a conversation fetch.
type ConversationMsg struct {
	Generation uint64
	Peer       types.ID
	Messages   []types.Message
	Cached     bool
	Err        error
}

// SendResultMsg completes an optimistic send.
type SendResultMsg struct {
	TempID  types.ID
	Peer    types.ID
	Message types.Message
	Err     error
}

// ProgressMsg reports upload progress of a pending attachment.
type ProgressMsg struct {
	TempID   types.ID
	Fraction float64
	next     <-chan float64
}

// EditResultMsg completes an optimistic edit.
type EditResultMsg struct {
	ID      types.ID
	Message types.Message
	Err     error
}

// DeleteResultMsg completes a delete request.
type DeleteResultMsg struct {
	ID    types.ID
	Scope types.DeleteScope
	Err   error
}

// ReadResultMsg completes a mark-read request.
type ReadResultMsg struct {
	Peer types.ID
	Err  error
}

// BlockResultMsg completes a block or unblock request.
type BlockResultMsg struct {
	Peer    types.ID
	Blocked bool
	Err     error
}

// ConversationDeletedMsg completes a delete-conversation request.
type ConversationDeletedMsg struct {
	ConversationID types.ID
	Err            error
}

// PresenceMsg is the result of a presence fetch.
type PresenceMsg struct {
	Presence types.Presence
	Err      error
}
