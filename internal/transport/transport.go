package transport

import (
	"errors"
)

// ErrNotConnected is returned by Send while the channel is down. Intents are
// never queued.
var ErrNotConnected = errors.New("realtime channel not connected")

// Transport is a persistent bidirectional channel to the chat server.
//
// Events delivers typed payloads from internal/types (types.Connected,
// types.MessageReceived, ...) in arrival order. The channel is closed once
// the transport is closed.
type Transport interface {
	Events() <-chan any
	Send(event string, payload any) error
	Connected() bool
	Close() error
}
