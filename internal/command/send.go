package command

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rentnest/nestchat/internal/api"
	"github.com/rentnest/nestchat/internal/types"
)

// NewSendCmd creates the send command.
func NewSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <user> [message]",
		Short: "Send a message or file to a user",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			text := strings.TrimSpace(strings.Join(args[1:], " "))
			file, _ := cmd.Flags().GetString("file")
			voice, _ := cmd.Flags().GetBool("voice")
			duration, _ := cmd.Flags().GetFloat64("duration")
			replyTo, _ := cmd.Flags().GetString("reply-to")
			if text == "" && file == "" {
				return writeCommandError(cmd, fmt.Errorf("message text or --file is required"))
			}

			peer, err := resolveUser(cmd.Context(), ctx, args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}

			req := api.SendRequest{
				ClientID:   uuid.NewString(),
				ReceiverID: peer,
				Content:    text,
				Type:       types.MessageTypeText,
			}
			if replyTo != "" {
				target, err := findMessage(cmd, ctx, peer, types.ID(replyTo))
				if err != nil {
					return writeCommandError(cmd, err)
				}
				req.ReplyTo = target.ID
				req.ReplyToMetadata = target.Snapshot()
			}
			if file != "" {
				var kind types.MessageType
				if voice {
					kind = types.MessageTypeVoice
				}
				att, err := api.NewAttachment(file, kind)
				if err != nil {
					return writeCommandError(cmd, err)
				}
				att.Apply(&req)
				if text != "" {
					req.Content = text
				}
				req.Duration = duration
				if !ctx.JSONMode {
					req.Progress = uploadProgress(cmd)
				}
			}

			msg, err := ctx.Client.SendMessage(cmd.Context(), req)
			if req.Progress != nil {
				fmt.Fprintln(cmd.ErrOrStderr())
			}
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.Cache != nil {
				if cacheErr := ctx.Cache.SaveMessage(peer, msg); cacheErr != nil {
					ctx.Logger.Debugw("cache message failed", "id", msg.ID, "error", cacheErr)
				}
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(msg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %s\n", msg.ID)
			return nil
		},
	}

	cmd.Flags().String("file", "", "attach a file (image, video, audio or document)")
	cmd.Flags().Bool("voice", false, "send the attached file as a voice note")
	cmd.Flags().Float64("duration", 0, "voice note length in seconds")
	cmd.Flags().String("reply-to", "", "reply to a message id")
	return cmd
}

func uploadProgress(cmd *cobra.Command) api.ProgressFunc {
	last := -1
	return func(sent, total int64) {
		if total <= 0 {
			return
		}
		pct := int(sent * 100 / total)
		if pct == last {
			return
		}
		last = pct
		fmt.Fprintf(cmd.ErrOrStderr(), "\ruploading %3d%%", pct)
	}
}

// findMessage looks a message up in the conversation with peer.
func findMessage(cmd *cobra.Command, ctx *CommandContext, peer, id types.ID) (types.Message, error) {
	msgs, err := ctx.Client.GetConversation(cmd.Context(), peer)
	if err != nil {
		return types.Message{}, err
	}
	for _, msg := range msgs {
		if msg.ID == id {
			if msg.IsDeleted {
				return types.Message{}, fmt.Errorf("message %s was deleted", id)
			}
			return msg, nil
		}
	}
	return types.Message{}, fmt.Errorf("message %s not found", id)
}

// NewEditCmd creates the edit command.
func NewEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <msgid> <message>",
		Short: "Edit a message you sent",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			content := strings.TrimSpace(strings.Join(args[1:], " "))
			if content == "" {
				return writeCommandError(cmd, fmt.Errorf("message cannot be empty"))
			}
			msg, err := ctx.Client.EditMessage(cmd.Context(), types.ID(args[0]), content)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.Cache != nil && !msg.ID.IsZero() {
				if cacheErr := ctx.Cache.SaveMessage(msg.Peer(ctx.Identity.UserID), msg); cacheErr != nil {
					ctx.Logger.Debugw("cache message failed", "id", msg.ID, "error", cacheErr)
				}
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(msg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Edited %s\n", args[0])
			return nil
		},
	}
	return cmd
}

// NewRmCmd creates the rm command.
func NewRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <msgid>",
		Short: "Delete a message for yourself or for everyone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			scope := types.DeleteForMe
			if everyone, _ := cmd.Flags().GetBool("everyone"); everyone {
				scope = types.DeleteForEveryone
			}
			id := types.ID(args[0])
			if err := ctx.Client.DeleteMessage(cmd.Context(), id, scope); err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.Cache != nil {
				if cacheErr := ctx.Cache.DeleteMessage(id); cacheErr != nil {
					ctx.Logger.Debugw("cache delete failed", "id", id, "error", cacheErr)
				}
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"id": id, "scope": scope})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s)\n", id, scope)
			return nil
		},
	}

	cmd.Flags().Bool("everyone", false, "delete for both participants (own messages only)")
	return cmd
}

// NewBlockCmd creates the block command.
func NewBlockCmd() *cobra.Command {
	return newBlockCmd("block", "Block a user", true)
}

// NewUnblockCmd creates the unblock command.
func NewUnblockCmd() *cobra.Command {
	return newBlockCmd("unblock", "Unblock a user", false)
}

func newBlockCmd(name, short string, blocked bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name + " <user>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			peer, err := resolveUser(cmd.Context(), ctx, args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if blocked {
				err = ctx.Client.Block(cmd.Context(), peer)
			} else {
				err = ctx.Client.Unblock(cmd.Context(), peer)
			}
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"user_id": peer, "blocked": blocked})
			}
			verb := "Blocked"
			if !blocked {
				verb = "Unblocked"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, peer)
			return nil
		},
	}
	return cmd
}

// NewDeleteConversationCmd creates the delete-conversation command.
func NewDeleteConversationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-conversation <conversation-id>",
		Short: "Remove a conversation from your list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			id := types.ID(args[0])
			if err := ctx.Client.DeleteConversation(cmd.Context(), id); err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.Cache != nil {
				if list, listErr := ctx.Client.ListConversations(cmd.Context()); listErr == nil {
					if cacheErr := ctx.Cache.SaveConversations(list); cacheErr != nil {
						ctx.Logger.Debugw("cache conversations failed", "error", cacheErr)
					}
				}
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"conversation_id": id, "deleted": true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted conversation %s\n", id)
			return nil
		},
	}
	return cmd
}
