package db

import (
	"database/sql"
)

const schemaSQL = `
-- Conversation list as last fetched
CREATE TABLE IF NOT EXISTS nc_conversations (
  user_id TEXT PRIMARY KEY,            -- other participant
  conversation_id TEXT,
  user_name TEXT NOT NULL DEFAULT '',
  last_message TEXT,                   -- JSON message record
  unread_count INTEGER NOT NULL DEFAULT 0,
  is_online INTEGER NOT NULL DEFAULT 0,
  last_seen INTEGER,                   -- unix ms
  blocked_by_me INTEGER NOT NULL DEFAULT 0,
  blocked_by_other INTEGER NOT NULL DEFAULT 0,
  position INTEGER NOT NULL            -- order in the fetched list
);

-- Confirmed messages per conversation
CREATE TABLE IF NOT EXISTS nc_messages (
  id TEXT PRIMARY KEY,
  peer_id TEXT NOT NULL,
  ts INTEGER NOT NULL,                 -- unix ms
  record TEXT NOT NULL                 -- JSON message record
);

CREATE INDEX IF NOT EXISTS idx_nc_messages_peer_ts ON nc_messages(peer_id, ts);
`

// DBTX represents shared methods across sql.DB and sql.Tx.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// InitSchema creates the cache tables.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schemaSQL)
	return err
}

// Reset drops all cached data, used on logout.
func Reset(db *sql.DB) error {
	_, err := db.Exec(`DELETE FROM nc_messages; DELETE FROM nc_conversations;`)
	return err
}
