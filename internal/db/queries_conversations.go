package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/rentnest/nestchat/internal/types"
)

// ReplaceConversations stores a fetched conversation list, replacing the
// previous one.
func ReplaceConversations(db *sql.DB, list []types.ConversationSummary) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := replaceConversations(tx, list); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func replaceConversations(db DBTX, list []types.ConversationSummary) error {
	if _, err := db.Exec(`DELETE FROM nc_conversations`); err != nil {
		return err
	}
	for i, c := range list {
		var last any
		if c.LastMessage != nil {
			data, err := json.Marshal(c.LastMessage)
			if err != nil {
				return err
			}
			last = string(data)
		}
		var lastSeen any
		if c.LastSeen != nil {
			lastSeen = c.LastSeen.UnixMilli()
		}
		_, err := db.Exec(`
			INSERT OR REPLACE INTO nc_conversations
			  (user_id, conversation_id, user_name, last_message, unread_count, is_online, last_seen, blocked_by_me, blocked_by_other, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, string(c.UserID), string(c.ConversationID), c.UserName, last, c.UnreadCount,
			boolToInt(c.IsOnline), lastSeen, boolToInt(c.BlockedByMe), boolToInt(c.BlockedByOther), i)
		if err != nil {
			return fmt.Errorf("cache conversation %s: %w", c.UserID, err)
		}
	}
	return nil
}

// GetConversations returns the cached conversation list in fetch order.
// A non-empty match keeps only conversations whose user name matches the
// glob pattern, case-insensitively.
func GetConversations(db *sql.DB, match string) ([]types.ConversationSummary, error) {
	var matcher glob.Glob
	if match != "" {
		compiled, err := CompileNameFilter(match)
		if err != nil {
			return nil, err
		}
		matcher = compiled
	}

	rows, err := db.Query(`
		SELECT user_id, conversation_id, user_name, last_message, unread_count, is_online, last_seen, blocked_by_me, blocked_by_other
		FROM nc_conversations ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []types.ConversationSummary
	for rows.Next() {
		var (
			c                           types.ConversationSummary
			userID, conversationID      string
			last                        sql.NullString
			lastSeen                    sql.NullInt64
			online, blockedMe, blockedO int
		)
		if err := rows.Scan(&userID, &conversationID, &c.UserName, &last, &c.UnreadCount, &online, &lastSeen, &blockedMe, &blockedO); err != nil {
			return nil, err
		}
		c.UserID = types.ID(userID)
		c.ConversationID = types.ID(conversationID)
		c.IsOnline = online != 0
		c.BlockedByMe = blockedMe != 0
		c.BlockedByOther = blockedO != 0
		if lastSeen.Valid {
			at := time.UnixMilli(lastSeen.Int64)
			c.LastSeen = &at
		}
		if last.Valid {
			var msg types.Message
			if err := json.Unmarshal([]byte(last.String), &msg); err == nil {
				c.LastMessage = &msg
			}
		}
		if matcher != nil && !matcher.Match(strings.ToLower(c.UserName)) {
			continue
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// CompileNameFilter compiles a user-name glob. Patterns without wildcards
// match as substrings.
func CompileNameFilter(pattern string) (glob.Glob, error) {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if !strings.ContainsAny(pattern, "*?[{") {
		pattern = "*" + pattern + "*"
	}
	matcher, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", pattern, err)
	}
	return matcher, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
