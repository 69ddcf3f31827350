package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TempIDPrefix marks locally generated message ids awaiting confirmation.
const TempIDPrefix = "temp-"

// ID identifies users, messages and conversations. Servers send both numeric
// and string ids; they decode to the same value.
type ID string

// UnmarshalJSON accepts JSON strings and numbers.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the id text.
func (id ID) String() string { return string(id) }

// IsZero reports whether the id is unset.
func (id ID) IsZero() bool { return id == "" }

// MessageType describes how a message body is interpreted.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeVideo MessageType = "video"
	MessageTypeAudio MessageType = "audio"
	MessageTypeVoice MessageType = "voice"
	MessageTypeFile  MessageType = "file"
)

// IsAttachment reports whether the message carries a file.
func (t MessageType) IsAttachment() bool {
	switch t {
	case MessageTypeImage, MessageTypeVideo, MessageTypeAudio, MessageTypeVoice, MessageTypeFile:
		return true
	}
	return false
}

// ParseMessageType maps a wire value to a MessageType, defaulting to text.
func ParseMessageType(raw string) MessageType {
	switch t := MessageType(strings.ToLower(strings.TrimSpace(raw))); t {
	case MessageTypeImage, MessageTypeVideo, MessageTypeAudio, MessageTypeVoice, MessageTypeFile:
		return t
	}
	return MessageTypeText
}

// DeleteScope selects who loses a deleted message.
type DeleteScope string

const (
	DeleteForMe       DeleteScope = "me"
	DeleteForEveryone DeleteScope = "everyone"
)

// ReplyMetadata is a point-in-time copy of the message being replied to.
type ReplyMetadata struct {
	MessageID  ID          `json:"messageId,omitempty"`
	SenderID   ID          `json:"senderId"`
	SenderName string      `json:"senderName"`
	Type       MessageType `json:"messageType"`
	Content    string      `json:"content"`
}

// FileMetadata describes an attachment.
type FileMetadata struct {
	Name     string `json:"fileName"`
	Size     int64  `json:"fileSize"`
	MimeType string `json:"mimeType"`
}

// Message is a chat message record.
type Message struct {
	ID              ID             `json:"id"`
	ClientID        string         `json:"clientId,omitempty"`
	ConversationID  ID             `json:"conversationId,omitempty"`
	Participants    []ID           `json:"conversationParticipants,omitempty"`
	SenderID        ID             `json:"senderId"`
	SenderName      string         `json:"senderName,omitempty"`
	ReceiverID      ID             `json:"receiverId"`
	ReceiverName    string         `json:"receiverName,omitempty"`
	Content         string         `json:"content"`
	Type            MessageType    `json:"messageType"`
	Timestamp       time.Time      `json:"timestamp"`
	IsRead          bool           `json:"isRead"`
	IsDeleted       bool           `json:"isDeleted"`
	IsEdited        bool           `json:"isEdited"`
	EditedAt        *time.Time     `json:"editedAt,omitempty"`
	ReplyTo         ID             `json:"replyTo,omitempty"`
	ReplyToMetadata *ReplyMetadata `json:"replyToMetadata,omitempty"`
	FileURL         string         `json:"fileUrl,omitempty"`
	FileMetadata    *FileMetadata  `json:"fileMetadata,omitempty"`
	Duration        float64        `json:"duration,omitempty"`
}

// IsTemp reports whether the message still carries a locally generated id.
func (m Message) IsTemp() bool {
	return strings.HasPrefix(string(m.ID), TempIDPrefix)
}

// Peer returns the participant of m that is not self.
func (m Message) Peer(self ID) ID {
	if m.SenderID == self {
		return m.ReceiverID
	}
	return m.SenderID
}

// Between reports whether m was exchanged between a and b, in either direction.
func (m Message) Between(a, b ID) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// Snapshot copies the fields a reply preview needs.
func (m Message) Snapshot() *ReplyMetadata {
	return &ReplyMetadata{
		MessageID:  m.ID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Type:       m.Type,
		Content:    m.Content,
	}
}

// Clone returns a copy of m that shares no pointers with it.
func (m Message) Clone() Message {
	out := m
	if m.Participants != nil {
		out.Participants = append([]ID(nil), m.Participants...)
	}
	if m.EditedAt != nil {
		at := *m.EditedAt
		out.EditedAt = &at
	}
	if m.ReplyToMetadata != nil {
		meta := *m.ReplyToMetadata
		out.ReplyToMetadata = &meta
	}
	if m.FileMetadata != nil {
		meta := *m.FileMetadata
		out.FileMetadata = &meta
	}
	return out
}

// ConversationSummary is the preview record shown in the conversation list.
type ConversationSummary struct {
	ConversationID ID         `json:"conversationId"`
	UserID         ID         `json:"userId"`
	UserName       string     `json:"userName"`
	LastMessage    *Message   `json:"lastMessage,omitempty"`
	UnreadCount    int        `json:"unreadCount"`
	IsOnline       bool       `json:"isOnline"`
	LastSeen       *time.Time `json:"lastSeen,omitempty"`
	BlockedByMe    bool       `json:"blockedByMe"`
	BlockedByOther bool       `json:"blockedByOther"`
}

// Blocked reports whether either side blocked the conversation.
func (c ConversationSummary) Blocked() bool {
	return c.BlockedByMe || c.BlockedByOther
}

// Presence is the online state of a user.
type Presence struct {
	UserID   ID         `json:"userId"`
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}
