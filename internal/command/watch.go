package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rentnest/nestchat/internal/convo"
	"github.com/rentnest/nestchat/internal/types"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream realtime events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			socket, err := ctx.Dial(runCtx)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer socket.Close()

			out := cmd.OutOrStdout()
			self := ctx.Identity.UserID
			observe := func(msg tea.Msg) {
				event, ok := msg.(convo.EventMsg)
				if !ok {
					return
				}
				if ctx.JSONMode {
					if err := writeEventJSON(out, event.Event); err != nil {
						ctx.Logger.Warnw("write event failed", "error", err)
					}
					return
				}
				if line := formatEvent(event.Event, self); line != "" {
					fmt.Fprintln(out, line)
				}
			}

			ctrl := ctx.NewController(socket)
			runner := convo.NewRunner(ctrl, observe)
			err = runner.Run(runCtx, ctrl.Init())
			if err != nil && !errors.Is(err, context.Canceled) {
				return writeCommandError(cmd, err)
			}
			return nil
		},
	}
	return cmd
}

func writeEventJSON(out io.Writer, event any) error {
	name := eventName(event)
	if name == "" {
		return nil
	}
	var data any = event
	if e, ok := event.(types.Disconnected); ok {
		payload := map[string]string{}
		if e.Err != nil {
			payload["error"] = e.Err.Error()
		}
		data = payload
	}
	return json.NewEncoder(out).Encode(map[string]any{"event": name, "data": data})
}

func eventName(event any) string {
	switch event.(type) {
	case types.Connected:
		return types.EventConnect
	case types.Disconnected:
		return types.EventDisconnect
	case types.MessageReceived:
		return types.EventReceiveMessage
	case types.MessageDeleted:
		return types.EventMessageDeleted
	case types.MessageEdited:
		return types.EventMessageEdited
	case types.MessagesRead:
		return types.EventMessagesRead
	case types.PresenceUpdate:
		return types.EventPresenceUpdate
	case types.TypingIndicator:
		return types.EventTypingIndicator
	case types.ConversationDeleted:
		return types.EventConversationDeleted
	case types.BlockStatusChanged:
		return types.EventBlockStatusChanged
	case types.RefreshConversations:
		return types.EventRefreshConversations
	}
	return ""
}

// formatEvent renders an event as one line; typing noise is dropped.
func formatEvent(event any, self types.ID) string {
	switch e := event.(type) {
	case types.Connected:
		return "* connected"
	case types.Disconnected:
		if e.Err != nil {
			return "* disconnected: " + e.Err.Error()
		}
		return "* disconnected"
	case types.MessageReceived:
		return formatMessage(e.Message, self)
	case types.MessageEdited:
		return "edited " + formatMessage(e.Message, self)
	case types.MessageDeleted:
		return fmt.Sprintf("* message %s deleted", e.MessageID)
	case types.MessagesRead:
		if e.ReaderID == self {
			return ""
		}
		return fmt.Sprintf("* %s read your messages", e.ReaderID)
	case types.PresenceUpdate:
		return formatPresence(types.Presence{UserID: e.UserID, IsOnline: e.IsOnline, LastSeen: e.LastSeen})
	case types.ConversationDeleted:
		return fmt.Sprintf("* conversation %s deleted", e.ConversationID)
	case types.BlockStatusChanged:
		verb := "unblocked"
		if e.IsBlocked {
			verb = "blocked"
		}
		return fmt.Sprintf("* %s %s %s", e.BlockerID, verb, e.BlockedID)
	}
	return ""
}
