package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rentnest/nestchat/internal/types"
)

// ReplaceMessages stores the fetched messages of the conversation with peer.
// Temporary (unconfirmed) records are skipped.
func ReplaceMessages(db *sql.DB, peer types.ID, msgs []types.Message) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM nc_messages WHERE peer_id = ?`, string(peer)); err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, msg := range msgs {
		if err := upsertMessage(tx, peer, msg); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// UpsertMessage stores one confirmed message.
func UpsertMessage(db *sql.DB, peer types.ID, msg types.Message) error {
	return upsertMessage(db, peer, msg)
}

func upsertMessage(db DBTX, peer types.ID, msg types.Message) error {
	if msg.IsTemp() || msg.ID.IsZero() {
		return nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		INSERT OR REPLACE INTO nc_messages (id, peer_id, ts, record) VALUES (?, ?, ?, ?)
	`, string(msg.ID), string(peer), msg.Timestamp.UnixMilli(), string(data))
	if err != nil {
		return fmt.Errorf("cache message %s: %w", msg.ID, err)
	}
	return nil
}

// DeleteMessage removes a cached message.
func DeleteMessage(db *sql.DB, id types.ID) error {
	_, err := db.Exec(`DELETE FROM nc_messages WHERE id = ?`, string(id))
	return err
}

// GetMessages returns up to limit of the newest cached messages with peer,
// oldest first. A limit of 0 returns all.
func GetMessages(db *sql.DB, peer types.ID, limit int) ([]types.Message, error) {
	query := `SELECT record FROM (
		SELECT record, ts FROM nc_messages WHERE peer_id = ? ORDER BY ts DESC`
	args := []any{string(peer)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	query += `) ORDER BY ts ASC`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []types.Message
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, err
		}
		var msg types.Message
		if err := json.Unmarshal([]byte(record), &msg); err != nil {
			continue
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}
