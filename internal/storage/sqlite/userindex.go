package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"teambot/entity"
)

// UpsertContact records the latest known handles for a chat, last write wins.
// Empty fields keep the previously stored value.
func (s *Store) UpsertContact(chatId int64, username, phone string) error {
	_, err := s.db.Exec(
		`INSERT INTO contacts (chat_id, username, phone) VALUES (?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET
		   username = CASE WHEN excluded.username = '' THEN contacts.username ELSE excluded.username END,
		   phone = CASE WHEN excluded.phone = '' THEN contacts.phone ELSE excluded.phone END`,
		chatId, strings.ToLower(username), phone,
	)
	if err != nil {
		return fmt.Errorf("upserting contact: %w", err)
	}
	return nil
}

func (s *Store) ChatByUsername(username string) (int64, error) {
	var chatId int64
	err := s.db.QueryRow(
		"SELECT chat_id FROM contacts WHERE username = ? ORDER BY chat_id DESC LIMIT 1",
		strings.ToLower(username),
	).Scan(&chatId)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, entity.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("looking up username: %w", err)
	}
	return chatId, nil
}

func (s *Store) ChatByPhone(phone string) (int64, error) {
	var chatId int64
	err := s.db.QueryRow(
		"SELECT chat_id FROM contacts WHERE phone = ? ORDER BY chat_id DESC LIMIT 1",
		phone,
	).Scan(&chatId)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, entity.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("looking up phone: %w", err)
	}
	return chatId, nil
}
