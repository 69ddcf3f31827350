package command

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rentnest/nestchat/internal/db"
	"github.com/rentnest/nestchat/internal/types"
)

// NewConversationsCmd creates the conversations command.
func NewConversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"ls"},
		Short:   "List conversations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			match, _ := cmd.Flags().GetString("match")
			offline, _ := cmd.Flags().GetBool("cached")

			var list []types.ConversationSummary
			stale := offline
			if offline {
				if ctx.DB == nil {
					return writeCommandError(cmd, fmt.Errorf("local cache unavailable"))
				}
				list, err = db.GetConversations(ctx.DB, match)
				if err != nil {
					return writeCommandError(cmd, err)
				}
			} else {
				list, stale, err = loadConversations(cmd.Context(), ctx)
				if err != nil {
					return writeCommandError(cmd, err)
				}
				if list, err = filterConversations(list, match); err != nil {
					return writeCommandError(cmd, err)
				}
			}

			if ctx.JSONMode {
				if list == nil {
					list = []types.ConversationSummary{}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(list)
			}
			out := cmd.OutOrStdout()
			if stale {
				fmt.Fprintln(out, "(offline: showing cached conversations)")
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "No conversations")
				return nil
			}
			for _, conv := range list {
				fmt.Fprintln(out, formatConversation(conv))
			}
			return nil
		},
	}

	cmd.Flags().String("match", "", "filter by name (glob, e.g. 'al*')")
	cmd.Flags().Bool("cached", false, "read from the local cache without contacting the server")
	return cmd
}

func filterConversations(list []types.ConversationSummary, match string) ([]types.ConversationSummary, error) {
	if strings.TrimSpace(match) == "" {
		return list, nil
	}
	matcher, err := db.CompileNameFilter(match)
	if err != nil {
		return nil, err
	}
	out := make([]types.ConversationSummary, 0, len(list))
	for _, conv := range list {
		if matcher.Match(strings.ToLower(conv.UserName)) {
			out = append(out, conv)
		}
	}
	return out, nil
}

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <user>",
		Short: "Show the messages exchanged with a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			limit, _ := cmd.Flags().GetInt("last")
			if limit <= 0 {
				limit = ctx.Config.HistoryLimit
			}
			offline, _ := cmd.Flags().GetBool("cached")
			markRead, _ := cmd.Flags().GetBool("mark-read")

			var peer types.ID
			var msgs []types.Message
			if offline {
				if ctx.DB == nil {
					return writeCommandError(cmd, fmt.Errorf("local cache unavailable"))
				}
				peer = types.ID(args[0])
				if list, listErr := db.GetConversations(ctx.DB, ""); listErr == nil {
					if id, matchErr := matchUser(list, args[0]); matchErr == nil {
						peer = id
					}
				}
				msgs, err = db.GetMessages(ctx.DB, peer, limit)
				if err != nil {
					return writeCommandError(cmd, err)
				}
			} else {
				peer, err = resolveUser(cmd.Context(), ctx, args[0])
				if err != nil {
					return writeCommandError(cmd, err)
				}
				msgs, err = ctx.Client.GetConversation(cmd.Context(), peer)
				if err != nil {
					return writeCommandError(cmd, err)
				}
				if ctx.Cache != nil {
					if cacheErr := ctx.Cache.SaveMessages(peer, msgs); cacheErr != nil {
						ctx.Logger.Debugw("cache messages failed", "peer", peer, "error", cacheErr)
					}
				}
				if markRead {
					if err := ctx.Client.MarkRead(cmd.Context(), peer); err != nil {
						ctx.Logger.Warnw("mark read failed", "peer", peer, "error", err)
					}
				}
				if len(msgs) > limit {
					msgs = msgs[len(msgs)-limit:]
				}
			}

			if ctx.JSONMode {
				if msgs == nil {
					msgs = []types.Message{}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(msgs)
			}
			out := cmd.OutOrStdout()
			if len(msgs) == 0 {
				fmt.Fprintln(out, "No messages")
				return nil
			}
			for _, msg := range msgs {
				fmt.Fprintln(out, formatMessage(msg, ctx.Identity.UserID))
			}
			return nil
		},
	}

	cmd.Flags().Int("last", 0, "show the last N messages (default history_limit)")
	cmd.Flags().Bool("cached", false, "read from the local cache without contacting the server")
	cmd.Flags().Bool("mark-read", true, "mark the conversation as read")
	return cmd
}

// NewPresenceCmd creates the presence command.
func NewPresenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presence <user>",
		Short: "Show whether a user is online",
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
			presence, err := ctx.Client.GetPresence(cmd.Context(), peer)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(presence)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatPresence(presence))
			return nil
		},
	}
	return cmd
}
