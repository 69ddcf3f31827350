package db

import (
	"database/sql"

	"github.com/rentnest/nestchat/internal/types"
)

// Cache adapts the cache tables to the conversation controller.
type Cache struct {
	DB *sql.DB
	// Limit bounds how many messages per conversation are served.
	Limit int
}

func (c *Cache) Conversations() ([]types.ConversationSummary, error) {
	return GetConversations(c.DB, "")
}

func (c *Cache) SaveConversations(list []types.ConversationSummary) error {
	return ReplaceConversations(c.DB, list)
}

func (c *Cache) Messages(peer types.ID) ([]types.Message, error) {
	return GetMessages(c.DB, peer, c.Limit)
}

func (c *Cache) SaveMessages(peer types.ID, msgs []types.Message) error {
	return ReplaceMessages(c.DB, peer, msgs)
}

func (c *Cache) SaveMessage(peer types.ID, msg types.Message) error {
	return UpsertMessage(c.DB, peer, msg)
}

func (c *Cache) DeleteMessage(id types.ID) error {
	return DeleteMessage(c.DB, id)
}
