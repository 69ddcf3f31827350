package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/rentnest/nestchat/internal/db"
	"github.com/rentnest/nestchat/internal/types"
)

// loadConversations fetches the conversation list and refreshes the cache.
// When the API is unreachable the cached list is served instead.
func loadConversations(ctx context.Context, c *CommandContext) ([]types.ConversationSummary, bool, error) {
	list, err := c.Client.ListConversations(ctx)
	if err == nil {
		if c.Cache != nil {
			if cacheErr := c.Cache.SaveConversations(list); cacheErr != nil {
				c.Logger.Debugw("cache conversations failed", "error", cacheErr)
			}
		}
		return list, false, nil
	}
	if c.Cache == nil {
		return nil, false, err
	}
	c.Logger.Warnw("conversation list fetch failed, using cache", "error", err)
	cached, cacheErr := c.Cache.Conversations()
	if cacheErr != nil || len(cached) == 0 {
		return nil, false, err
	}
	return cached, true, nil
}

// resolveUser maps a user id or name (glob patterns allowed) to a user id.
// A reference matching no known conversation is taken as a user id.
func resolveUser(ctx context.Context, c *CommandContext, ref string) (types.ID, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("user cannot be empty")
	}
	list, _, err := loadConversations(ctx, c)
	if err != nil {
		c.Logger.Debugw("resolve user without conversation list", "ref", ref, "error", err)
		return types.ID(ref), nil
	}
	return matchUser(list, ref)
}

func matchUser(list []types.ConversationSummary, ref string) (types.ID, error) {
	for _, conv := range list {
		if string(conv.UserID) == ref {
			return conv.UserID, nil
		}
	}
	for _, conv := range list {
		if strings.EqualFold(conv.UserName, ref) {
			return conv.UserID, nil
		}
	}
	matcher, err := db.CompileNameFilter(ref)
	if err != nil {
		return types.ID(ref), nil
	}
	var matches []types.ConversationSummary
	for _, conv := range list {
		if matcher.Match(strings.ToLower(conv.UserName)) {
			matches = append(matches, conv)
		}
	}
	switch len(matches) {
	case 0:
		return types.ID(ref), nil
	case 1:
		return matches[0].UserID, nil
	}
	names := make([]string, 0, len(matches))
	for _, conv := range matches {
		names = append(names, fmt.Sprintf("%s (%s)", conv.UserName, conv.UserID))
	}
	return "", fmt.Errorf("ambiguous user %q: %s", ref, strings.Join(names, ", "))
}
