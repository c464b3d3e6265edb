package entity

import (
	"fmt"
	"teambot/lib/validate"
	"time"
)

// Account is a registered chat participant's profile record.
// Created lazily on the first /start; OwnerChatId never changes afterwards.
type Account struct {
	AccountId    string    `json:"account_id" validate:"required"`
	OwnerChatId  int64     `json:"owner_chat_id" validate:"required"`
	DisplayName  string    `json:"display_name" validate:"required,min=1"`
	Username     string    `json:"username" validate:"omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

func (a *Account) Validate() error {
	return validate.Struct(a)
}

// Display returns "Name @username" or just the name when no handle is known.
func (a *Account) Display() string {
	if a.Username != "" {
		return fmt.Sprintf("%s @%s", a.DisplayName, a.Username)
	}
	return a.DisplayName
}
