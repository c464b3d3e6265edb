package entity

import "time"

// InviteCode lets a group owner hand out one-time join links.
// Users open a deep link (t.me/bot?start=CODE) which adds them straight to
// the group, bypassing the pending/approval flow.
type InviteCode struct {
	Code      string    `json:"code"`
	GroupId   string    `json:"group_id"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UsedBy    int64     `json:"used_by,omitempty"`
	UsedAt    time.Time `json:"used_at,omitempty"`
	MaxUses   int       `json:"max_uses"`
	UseCount  int       `json:"use_count"`
}

func (c *InviteCode) Exhausted() bool {
	return c.UseCount >= c.MaxUses
}
