package entity

import "errors"

// Domain error taxonomy. Every error here is translated into a user-facing
// chat message at the bot layer; none of them is fatal to the process.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyMember    = errors.New("already a member")
	ErrAlreadyOwner     = errors.New("already owns a group")
	ErrUnauthorized     = errors.New("not authorized")
	ErrInvalidInput     = errors.New("invalid input")
	ErrIDSpaceExhausted = errors.New("id space exhausted")
	ErrInviteUsed       = errors.New("invite code already used")
)
