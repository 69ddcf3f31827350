package command

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/rentnest/nestchat/internal/chat"
	"github.com/rentnest/nestchat/internal/session"
	"github.com/rentnest/nestchat/internal/types"
)

// NewChatCmd creates the chat command.
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [user]",
		Short: "Open the interactive messenger",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			if ctx.JSONMode {
				return writeCommandError(cmd, fmt.Errorf("chat is interactive; --json is not supported"))
			}

			var peer types.ID
			if len(args) == 1 {
				peer, err = resolveUser(cmd.Context(), ctx, args[0])
				if err != nil {
					return writeCommandError(cmd, err)
				}
			}

			socket, err := ctx.Dial(cmd.Context())
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer socket.Close()

			ended := make(chan struct{})
			var once sync.Once
			if err := session.Watch(cmd.Context(), ctx.Config.SessionPath(), func(change session.Change) {
				ctx.Logger.Infow("session changed, leaving chat", "change", change)
				once.Do(func() { close(ended) })
			}); err != nil {
				ctx.Logger.Warnw("session watch unavailable", "error", err)
			}

			name := ctx.Identity.Name
			if name == "" {
				name = string(ctx.Identity.UserID)
			}
			return chat.Run(chat.Options{
				Controller:    ctx.NewController(socket),
				Peer:          peer,
				SelfName:      name,
				Notifications: ctx.Config.Notifications,
				VoiceRecorder: ctx.Config.VoiceRecorder,
				SessionEnded:  ended,
				Logger:        ctx.Logger,
			})
		},
	}
	return cmd
}
