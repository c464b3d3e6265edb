package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"teambot/entity"
	"teambot/lib/clock"
	"time"
)

func (s *Store) CreateInviteCode(code *entity.InviteCode) error {
	if code == nil || code.Code == "" {
		return entity.ErrInvalidInput
	}
	_, err := s.db.Exec(
		"INSERT INTO invite_codes (code, group_id, created_by, created_at, max_uses, use_count) VALUES (?, ?, ?, ?, ?, ?)",
		code.Code, code.GroupId, code.CreatedBy, clock.Format(code.CreatedAt), code.MaxUses, code.UseCount,
	)
	if err != nil {
		return fmt.Errorf("inserting invite code: %w", err)
	}
	return nil
}

// UseInviteCode burns one use of a code atomically: the guarded UPDATE only
// fires while use_count is below max_uses.
func (s *Store) UseInviteCode(code string, chatId int64) (*entity.InviteCode, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	inv := &entity.InviteCode{}
	var createdAt, usedAt string
	err = tx.QueryRow(
		"SELECT code, group_id, created_by, created_at, used_by, used_at, max_uses, use_count FROM invite_codes WHERE code = ?",
		code,
	).Scan(&inv.Code, &inv.GroupId, &inv.CreatedBy, &createdAt, &inv.UsedBy, &usedAt, &inv.MaxUses, &inv.UseCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up invite code: %w", err)
	}
	if inv.Exhausted() {
		return nil, entity.ErrInviteUsed
	}

	now := time.Now().UTC()
	res, err := tx.Exec(
		"UPDATE invite_codes SET use_count = use_count + 1, used_by = ?, used_at = ? WHERE code = ? AND use_count < max_uses",
		chatId, clock.Format(now), code,
	)
	if err != nil {
		return nil, fmt.Errorf("updating invite code: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating invite code: %w", err)
	}
	if affected == 0 {
		return nil, entity.ErrInviteUsed
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	inv.UseCount++
	inv.UsedBy = chatId
	inv.UsedAt = now
	inv.CreatedAt, _ = clock.Parse(createdAt)
	return inv, nil
}
