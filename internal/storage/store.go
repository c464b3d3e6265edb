// Package storage defines the record-store contract shared by the flat-file
// and relational backends.
package storage

import "teambot/entity"

// Store is the persistence boundary for accounts, groups, the user index
// and invite codes. Lookups return entity.ErrNotFound for unknown keys.
//
// Membership transitions execute atomically inside the store: the jsonfile
// backend serializes whole-document read-modify-write cycles behind a mutex,
// the sqlite backend uses transactions. Two concurrent AddMember calls for
// different users therefore both land.
type Store interface {
	// Accounts. RegisterAccount allocates a fresh unique account id on first
	// contact and updates the display fields on repeat calls, atomically.
	Account(accountId string) (*entity.Account, error)
	AccountByChat(chatId int64) (*entity.Account, error)
	RegisterAccount(chatId int64, name, username string) (*entity.Account, error)
	UpdateAccount(acc *entity.Account) error

	// Groups. CreateGroup allocates a fresh unique group id and fails with
	// entity.ErrAlreadyOwner when the chat already owns a group.
	Group(groupId string) (*entity.Group, error)
	GroupByOwner(chatId int64) (*entity.Group, error)
	GroupsByMember(chatId int64) ([]*entity.Group, error)
	CreateGroup(name string, ownerChatId int64) (*entity.Group, error)

	// Membership transitions. RequestJoin is idempotent on the pending set
	// and fails with entity.ErrAlreadyMember for existing members.
	// RemoveMember never removes the owner.
	RequestJoin(groupId string, chatId int64) (*entity.Group, error)
	ApproveJoin(groupId string, chatId int64) (*entity.Group, error)
	DenyJoin(groupId string, chatId int64) (*entity.Group, error)
	AddMember(groupId string, chatId int64) (*entity.Group, error)
	RemoveMember(groupId string, chatId int64) (*entity.Group, error)

	// User index: handle → chat id, last write wins.
	UpsertContact(chatId int64, username, phone string) error
	ChatByUsername(username string) (int64, error)
	ChatByPhone(phone string) (int64, error)

	// Invite codes. UseInviteCode fails with entity.ErrInviteUsed once the
	// code's use budget is spent.
	CreateInviteCode(code *entity.InviteCode) error
	UseInviteCode(code string, chatId int64) (*entity.InviteCode, error)

	Close() error
}
