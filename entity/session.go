package entity

import "time"

// SessionAction names the wizard step a chat is currently waiting on.
// An empty action means no wizard is pending and free text is answered
// with a usage hint.
type SessionAction string

const (
	ActionNone            SessionAction = ""
	ActionCreateGroupName SessionAction = "create_group_name"
	ActionJoinGroupId     SessionAction = "join_group_id"
	ActionInviteHandle    SessionAction = "invite_handle"
	ActionRenameAccount   SessionAction = "rename_account"
)

// Session is the per-chat conversation state value object. It is ephemeral:
// held in memory only, cleared on completion or /cancel, never persisted.
type Session struct {
	ChatId    int64
	Action    SessionAction
	GroupId   string // scratch field for wizards operating on a group
	UpdatedAt time.Time
}
