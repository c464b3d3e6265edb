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

// querier lets the group readers run against either the pool or an open
// transaction.
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
}

func readGroup(q querier, groupId string) (*entity.Group, error) {
	var g entity.Group
	var createdAt string
	err := q.QueryRow(
		"SELECT group_id, name, owner_chat_id, created_at FROM groups WHERE group_id = ?",
		groupId,
	).Scan(&g.GroupId, &g.Name, &g.OwnerChatId, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning group: %w", err)
	}
	g.CreatedAt, err = clock.Parse(createdAt)
	if err != nil {
		return nil, fmt.Errorf("scanning group: %w", err)
	}

	rows, err := q.Query(
		"SELECT chat_id, state FROM group_members WHERE group_id = ? ORDER BY changed_at, chat_id",
		groupId,
	)
	if err != nil {
		return nil, fmt.Errorf("reading members: %w", err)
	}
	defer rows.Close()

	g.Members = []int64{}
	g.Pending = []int64{}
	for rows.Next() {
		var chatId int64
		var state string
		if err = rows.Scan(&chatId, &state); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		if state == "member" {
			g.Members = append(g.Members, chatId)
		} else {
			g.Pending = append(g.Pending, chatId)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("reading members: %w", err)
	}
	return &g, nil
}

func (s *Store) Group(groupId string) (*entity.Group, error) {
	return readGroup(s.db, groupId)
}

func (s *Store) GroupByOwner(chatId int64) (*entity.Group, error) {
	var groupId string
	err := s.db.QueryRow("SELECT group_id FROM groups WHERE owner_chat_id = ?", chatId).Scan(&groupId)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up owner group: %w", err)
	}
	return readGroup(s.db, groupId)
}

func (s *Store) GroupsByMember(chatId int64) ([]*entity.Group, error) {
	rows, err := s.db.Query(
		"SELECT group_id FROM group_members WHERE chat_id = ? AND state = 'member' ORDER BY changed_at",
		chatId,
	)
	if err != nil {
		return nil, fmt.Errorf("listing member groups: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning group id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("listing member groups: %w", err)
	}

	var groups []*entity.Group
	for _, id := range ids {
		g, err := readGroup(s.db, id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func (s *Store) CreateGroup(name string, ownerChatId int64) (*entity.Group, error) {
	if name == "" || ownerChatId == 0 {
		return nil, entity.ErrInvalidInput
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err = tx.QueryRow("SELECT COUNT(*) FROM groups WHERE owner_chat_id = ?", ownerChatId).Scan(&n); err != nil {
		return nil, fmt.Errorf("checking owner: %w", err)
	}
	if n > 0 {
		return nil, entity.ErrAlreadyOwner
	}

	groupId, err := ident.New(ident.Group, func(candidate string) bool {
		var c int
		_ = tx.QueryRow("SELECT COUNT(*) FROM groups WHERE group_id = ?", candidate).Scan(&c)
		return c > 0
	})
	if err != nil {
		return nil, err
	}

	now := clock.Format(time.Now())
	if _, err = tx.Exec(
		"INSERT INTO groups (group_id, name, owner_chat_id, created_at) VALUES (?, ?, ?, ?)",
		groupId, name, ownerChatId, now,
	); err != nil {
		return nil, fmt.Errorf("inserting group: %w", err)
	}
	if _, err = tx.Exec(
		"INSERT INTO group_members (group_id, chat_id, state, changed_at) VALUES (?, ?, 'member', ?)",
		groupId, ownerChatId, now,
	); err != nil {
		return nil, fmt.Errorf("inserting owner membership: %w", err)
	}

	g, err := readGroup(tx, groupId)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return g, nil
}

// transition wraps a membership mutation in a transaction and returns the
// group as committed.
func (s *Store) transition(groupId string, fn func(tx *sql.Tx, g *entity.Group) error) (*entity.Group, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	g, err := readGroup(tx, groupId)
	if err != nil {
		return nil, err
	}
	if err = fn(tx, g); err != nil {
		return nil, err
	}
	g, err = readGroup(tx, groupId)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return g, nil
}

func (s *Store) RequestJoin(groupId string, chatId int64) (*entity.Group, error) {
	return s.transition(groupId, func(tx *sql.Tx, g *entity.Group) error {
		if g.IsMember(chatId) {
			return entity.ErrAlreadyMember
		}
		_, err := tx.Exec(
			"INSERT INTO group_members (group_id, chat_id, state, changed_at) VALUES (?, ?, 'pending', ?) ON CONFLICT(group_id, chat_id) DO NOTHING",
			groupId, chatId, clock.Format(time.Now()),
		)
		return err
	})
}

func (s *Store) ApproveJoin(groupId string, chatId int64) (*entity.Group, error) {
	return s.transition(groupId, func(tx *sql.Tx, g *entity.Group) error {
		_, err := tx.Exec(
			"INSERT INTO group_members (group_id, chat_id, state, changed_at) VALUES (?, ?, 'member', ?) ON CONFLICT(group_id, chat_id) DO UPDATE SET state = 'member', changed_at = excluded.changed_at",
			groupId, chatId, clock.Format(time.Now()),
		)
		return err
	})
}

func (s *Store) DenyJoin(groupId string, chatId int64) (*entity.Group, error) {
	return s.transition(groupId, func(tx *sql.Tx, g *entity.Group) error {
		_, err := tx.Exec(
			"DELETE FROM group_members WHERE group_id = ? AND chat_id = ? AND state = 'pending'",
			groupId, chatId,
		)
		return err
	})
}

func (s *Store) AddMember(groupId string, chatId int64) (*entity.Group, error) {
	return s.ApproveJoin(groupId, chatId)
}

func (s *Store) RemoveMember(groupId string, chatId int64) (*entity.Group, error) {
	return s.transition(groupId, func(tx *sql.Tx, g *entity.Group) error {
		if g.IsOwner(chatId) {
			// The owner stays; only a stray pending row would be dropped.
			_, err := tx.Exec(
				"DELETE FROM group_members WHERE group_id = ? AND chat_id = ? AND state = 'pending'",
				groupId, chatId,
			)
			return err
		}
		_, err := tx.Exec(
			"DELETE FROM group_members WHERE group_id = ? AND chat_id = ?",
			groupId, chatId,
		)
		return err
	})
}
