package types

import "time"

// Inbound event names.
const (
	EventConnect              = "connect"
	EventDisconnect           = "disconnect"
	EventReceiveMessage       = "receive_message"
	EventMessageDeleted       = "message_deleted"
	EventMessageEdited        = "message_edited"
	EventMessagesRead         = "messages_read"
	EventPresenceUpdate       = "presence_update"
	EventTypingIndicator      = "typing_indicator"
	EventConversationDeleted  = "conversation_deleted"
	EventBlockStatusChanged   = "block_status_changed"
	EventRefreshConversations = "refresh_conversations"
)

// Outbound intent names.
const (
	IntentJoinConversation  = "join_conversation"
	IntentLeaveConversation = "leave_conversation"
	IntentTyping            = "typing"
)

// Connected is emitted when the realtime channel (re)connects.
type Connected struct{}

// Disconnected is emitted when the realtime channel drops.
type Disconnected struct {
	Err error
}

// MessageReceived carries a new message.
type MessageReceived struct {
	Message Message
}

// MessageDeleted reports a message deleted for everyone.
type MessageDeleted struct {
	MessageID      ID `json:"messageId"`
	ConversationID ID `json:"conversationId,omitempty"`
	DeletedBy      ID `json:"deletedBy,omitempty"`
}

// MessageEdited carries the edited message record.
type MessageEdited struct {
	Message Message
}

// MessagesRead reports that reader has read the conversation.
type MessagesRead struct {
	ConversationID ID   `json:"conversationId,omitempty"`
	ReaderID       ID   `json:"readerId"`
	MessageIDs     []ID `json:"messageIds,omitempty"`
}

// PresenceUpdate reports a presence change.
type PresenceUpdate struct {
	UserID   ID         `json:"userId"`
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

// TypingIndicator reports that sender started or stopped typing.
type TypingIndicator struct {
	SenderID   ID   `json:"senderId"`
	ReceiverID ID   `json:"receiverId"`
	IsTyping   bool `json:"isTyping"`
}

// ConversationDeleted reports a removed conversation.
type ConversationDeleted struct {
	ConversationID ID `json:"conversationId"`
	UserID         ID `json:"userId,omitempty"`
}

// BlockStatusChanged reports a block or unblock between two users.
type BlockStatusChanged struct {
	BlockerID ID   `json:"blockerId"`
	BlockedID ID   `json:"blockedId"`
	IsBlocked bool `json:"isBlocked"`
}

// RefreshConversations asks the client to refetch its conversation list.
type RefreshConversations struct{}

// TypingIntent is the payload of an outbound typing intent.
type TypingIntent struct {
	SenderID   ID   `json:"senderId"`
	ReceiverID ID   `json:"receiverId"`
	IsTyping   bool `json:"isTyping"`
}

// RoomIntent is the payload of join/leave conversation intents.
type RoomIntent struct {
	UserID      ID `json:"userId"`
	OtherUserID ID `json:"otherUserId"`
}
