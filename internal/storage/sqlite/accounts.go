package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"teambot/entity"
	"teambot/lib/clock"
	"teambot/lib/ident"
	"time"
)

func scanAccount(row *sql.Row) (*entity.Account, error) {
	var acc entity.Account
	var registeredAt string
	err := row.Scan(&acc.AccountId, &acc.OwnerChatId, &acc.DisplayName, &acc.Username, &registeredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning account: %w", err)
	}
	acc.RegisteredAt, err = clock.Parse(registeredAt)
	if err != nil {
		return nil, fmt.Errorf("scanning account: %w", err)
	}
	return &acc, nil
}

func (s *Store) Account(accountId string) (*entity.Account, error) {
	row := s.db.QueryRow(
		"SELECT account_id, owner_chat_id, display_name, username, registered_at FROM accounts WHERE account_id = ?",
		accountId,
	)
	return scanAccount(row)
}

func (s *Store) AccountByChat(chatId int64) (*entity.Account, error) {
	row := s.db.QueryRow(
		"SELECT account_id, owner_chat_id, display_name, username, registered_at FROM accounts WHERE owner_chat_id = ?",
		chatId,
	)
	return scanAccount(row)
}

func (s *Store) RegisterAccount(chatId int64, name, username string) (*entity.Account, error) {
	if chatId == 0 || name == "" {
		return nil, entity.ErrInvalidInput
	}
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var accId string
	err = tx.QueryRow("SELECT account_id FROM accounts WHERE owner_chat_id = ?", chatId).Scan(&accId)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		accId, err = ident.New(ident.Account, func(candidate string) bool {
			var n int
			_ = tx.QueryRow("SELECT COUNT(*) FROM accounts WHERE account_id = ?", candidate).Scan(&n)
			return n > 0
		})
		if err != nil {
			return nil, err
		}
		_, err = tx.Exec(
			"INSERT INTO accounts (account_id, owner_chat_id, display_name, username, registered_at) VALUES (?, ?, ?, ?, ?)",
			accId, chatId, name, username, clock.Format(time.Now()),
		)
		if err != nil {
			return nil, fmt.Errorf("inserting account: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("looking up account: %w", err)
	default:
		_, err = tx.Exec(
			"UPDATE accounts SET display_name = ?, username = ? WHERE account_id = ?",
			name, username, accId,
		)
		if err != nil {
			return nil, fmt.Errorf("updating account: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return s.Account(accId)
}

func (s *Store) UpdateAccount(acc *entity.Account) error {
	if err := acc.Validate(); err != nil {
		return entity.ErrInvalidInput
	}
	res, err := s.db.Exec(
		"UPDATE accounts SET display_name = ?, username = ? WHERE account_id = ?",
		acc.DisplayName, acc.Username, acc.AccountId,
	)
	if err != nil {
		return fmt.Errorf("updating account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating account: %w", err)
	}
	if affected == 0 {
		return entity.ErrNotFound
	}
	return nil
}
