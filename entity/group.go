package entity

import (
	"teambot/lib/validate"
	"time"
)

// Group is a named collection of chat participants with one owner and a
// join-approval workflow.
//
// Invariants maintained by the transition methods:
//   - OwnerChatId is always present in Members
//   - a chat id never appears in Members and Pending at the same time
type Group struct {
	GroupId     string    `json:"group_id" validate:"required"`
	Name        string    `json:"name" validate:"required,min=1"`
	OwnerChatId int64     `json:"owner_chat_id" validate:"required"`
	Members     []int64   `json:"members"`
	Pending     []int64   `json:"pending"`
	CreatedAt   time.Time `json:"created_at"`
}

func (g *Group) Validate() error {
	return validate.Struct(g)
}

func (g *Group) IsOwner(chatId int64) bool {
	return g.OwnerChatId == chatId
}

func (g *Group) IsMember(chatId int64) bool {
	return contains(g.Members, chatId)
}

func (g *Group) IsPending(chatId int64) bool {
	return contains(g.Pending, chatId)
}

// AddPending records a join request. Idempotent; a chat id that is already
// a member must be rejected by the caller before this point.
func (g *Group) AddPending(chatId int64) {
	if !contains(g.Pending, chatId) {
		g.Pending = append(g.Pending, chatId)
	}
}

// AddMember moves a chat id into Members, clearing any pending request.
func (g *Group) AddMember(chatId int64) {
	g.Pending = remove(g.Pending, chatId)
	if !contains(g.Members, chatId) {
		g.Members = append(g.Members, chatId)
	}
}

// RemovePending drops a join request without touching Members.
func (g *Group) RemovePending(chatId int64) {
	g.Pending = remove(g.Pending, chatId)
}

// RemoveMember drops a chat id from both sets. The owner is never removed.
func (g *Group) RemoveMember(chatId int64) {
	if chatId != g.OwnerChatId {
		g.Members = remove(g.Members, chatId)
	}
	g.Pending = remove(g.Pending, chatId)
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func remove(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
