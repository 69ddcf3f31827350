package transport

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rentnest/nestchat/internal/types"
)

// envelope is the wire frame used in both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type unknownEventError struct {
	name string
}

func (e *unknownEventError) Error() string {
	return fmt.Sprintf("unknown event %q", e.name)
}

func encodeEnvelope(event string, payload any) ([]byte, error) {
	frame := envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", event, err)
		}
		frame.Data = data
	}
	return json.Marshal(frame)
}

// decodeFrame turns a raw frame into a typed event.
func decodeFrame(raw []byte) (any, error) {
	var frame envelope
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return decodeEvent(frame.Event, frame.Data)
}

func decodeEvent(name string, data json.RawMessage) (any, error) {
	switch name {
	case types.EventReceiveMessage:
		msg, err := decodeMessage(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return types.MessageReceived{Message: msg}, nil
	case types.EventMessageEdited:
		msg, err := decodeMessage(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return types.MessageEdited{Message: msg}, nil
	case types.EventMessageDeleted:
		var ev types.MessageDeleted
		if err := decodeInto(name, data, &ev); err != nil {
			return nil, err
		}
		if ev.MessageID.IsZero() {
			return nil, fmt.Errorf("%s: missing messageId", name)
		}
		return ev, nil
	case types.EventMessagesRead:
		var ev types.MessagesRead
		return ev, decodeInto(name, data, &ev)
	case types.EventPresenceUpdate:
		var ev types.PresenceUpdate
		return ev, decodeInto(name, data, &ev)
	case types.EventTypingIndicator:
		var ev types.TypingIndicator
		return ev, decodeInto(name, data, &ev)
	case types.EventConversationDeleted:
		var ev types.ConversationDeleted
		return ev, decodeInto(name, data, &ev)
	case types.EventBlockStatusChanged:
		var ev types.BlockStatusChanged
		return ev, decodeInto(name, data, &ev)
	case types.EventRefreshConversations:
		return types.RefreshConversations{}, nil
	}
	return nil, &unknownEventError{name: name}
}

func decodeInto(name string, data json.RawMessage, out any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%s: empty payload", name)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// decodeMessage accepts a bare message or one wrapped as {"message": {...}}.
func decodeMessage(data json.RawMessage) (types.Message, error) {
	var wrapped struct {
		Message *types.Message `json:"message"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return types.Message{}, err
	}
	var msg types.Message
	if wrapped.Message != nil {
		msg = *wrapped.Message
	} else if err := json.Unmarshal(data, &msg); err != nil {
		return types.Message{}, err
	}
	if msg.ID.IsZero() {
		return types.Message{}, fmt.Errorf("message without id")
	}
	if msg.Type == "" {
		msg.Type = types.MessageTypeText
	}
	return msg, nil
}
