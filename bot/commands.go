package bot

import (
	"errors"
	"fmt"
	"strings"

	"teambot/entity"
	"teambot/lib/ident"
	"teambot/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

// start registers the account (idempotent) and handles deep-link payloads:
// a group ID starts the join flow, anything else is tried as an invite code.
func (t *TgBot) start(_ *tgbotapi.Bot, ctx *ext.Context) error {
	msg := ctx.EffectiveMessage
	chatId := msg.Chat.Id

	acc, err := t.core.Register(chatId, senderName(ctx), senderUsername(ctx))
	if err != nil {
		t.reportError(chatId, "start", err)
		return nil
	}
	t.setChatCommands(chatId)

	payload := commandArgs(msg.Text)
	if payload == "" {
		t.menuResponse(chatId, fmt.Sprintf(
			"Hello, *%s*\\!\nI manage team groups\\. Create one with /create or join one with /join\\.\nSend /help for the full list\\.",
			Sanitize(acc.Display()),
		))
		return nil
	}

	candidate := strings.ToUpper(strings.TrimSpace(payload))
	if ident.Valid(ident.Group, candidate) {
		t.finishJoin(chatId, candidate)
		return nil
	}
	t.redeemInvite(chatId, payload)
	return nil
}

func (t *TgBot) redeemInvite(chatId int64, code string) {
	group, err := t.core.RedeemInvite(code, chatId)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrNotFound):
			t.plainResponse(chatId, "That link is not valid\\.")
		case errors.Is(err, entity.ErrInviteUsed):
			t.plainResponse(chatId, "That invite link has already been used\\.")
		default:
			t.reportError(chatId, "start:invite", err)
		}
		return
	}
	t.setChatCommands(chatId)
	t.plainResponse(chatId, fmt.Sprintf("Welcome to *%s*\\!", Sanitize(group.Name)))
	t.plainResponse(group.OwnerChatId, fmt.Sprintf(
		"%s joined *%s* via invite link\\.",
		Sanitize(t.accountLabel(chatId)), Sanitize(group.Name),
	))
}

// create makes a group from the command argument, or opens the wizard when
// the name is missing.
func (t *TgBot) create(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveMessage.Chat.Id
	name := commandArgs(ctx.EffectiveMessage.Text)
	if name == "" {
		t.sessions.Begin(chatId, entity.ActionCreateGroupName, "")
		t.plainResponse(chatId, "What should the group be called? Send the name, or /cancel\\.")
		return nil
	}
	t.finishCreate(chatId, name)
	return nil
}

// join requests membership in the group given as argument, or opens the
// wizard when the ID is missing.
func (t *TgBot) join(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveMessage.Chat.Id
	groupId := commandArgs(ctx.EffectiveMessage.Text)
	if groupId == "" {
		t.sessions.Begin(chatId, entity.ActionJoinGroupId, "")
		t.plainResponse(chatId, "Send the group ID you want to join, or /cancel\\.")
		return nil
	}
	t.finishJoin(chatId, groupId)
	return nil
}

// myGroup shows the caller's own group with its join link and any pending
// requests as approve/deny buttons.
func (t *TgBot) myGroup(_ *tgbotapi.Bot, ctx *ext.Context) error {
	t.showMyGroup(ctx.EffectiveMessage.Chat.Id)
	return nil
}

func (t *TgBot) showMyGroup(chatId int64) {
	group, err := t.core.OwnGroup(chatId)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			t.plainResponse(chatId, "You do not own a group\\. Create one with /create\\.")
			return
		}
		t.reportError(chatId, "mygroup", err)
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*%s*\nID: `%s`\nMembers: %d\n", Sanitize(group.Name), group.GroupId, len(group.Members)))
	sb.WriteString(fmt.Sprintf("Join link:\n%s\n", Sanitize(t.core.JoinLink(group.GroupId))))

	if len(group.Pending) == 0 {
		t.plainResponse(chatId, sb.String())
		return
	}

	sb.WriteString(fmt.Sprintf("\nPending requests: %d", len(group.Pending)))
	t.plainResponse(chatId, sb.String())
	for _, pending := range group.Pending {
		t.sendWithKeyboard(chatId,
			fmt.Sprintf("Join request from %s", Sanitize(t.accountLabel(pending))),
			buildDecisionButtons(group.GroupId, pending),
		)
	}
}

// members lists the members of the caller's own group.
func (t *TgBot) members(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveMessage.Chat.Id

	group, err := t.core.OwnGroup(chatId)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			t.plainResponse(chatId, "You do not own a group\\. Create one with /create\\.")
			return nil
		}
		t.reportError(chatId, "members", err)
		return nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Members of *%s*:\n", Sanitize(group.Name)))
	for _, member := range group.Members {
		label := t.accountLabel(member)
		if member == group.OwnerChatId {
			label += " (owner)"
		}
		sb.WriteString(fmt.Sprintf("\\- %s\n", Sanitize(label)))
	}
	for _, part := range splitMessage(sb.String(), 4096) {
		t.plainResponse(chatId, part)
	}
	return nil
}

// invite adds a member directly by @username or phone. Owner-only; the
// target must have talked to the bot before so the handle can be resolved.
func (t *TgBot) invite(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveMessage.Chat.Id

	group, err := t.core.OwnGroup(chatId)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			t.plainResponse(chatId, "You do not own a group\\. Create one with /create\\.")
			return nil
		}
		t.reportError(chatId, "invite", err)
		return nil
	}

	handle := commandArgs(ctx.EffectiveMessage.Text)
	if handle == "" {
		t.sessions.Begin(chatId, entity.ActionInviteHandle, group.GroupId)
		t.plainResponse(chatId, "Send the @username or phone number of the person to add, or /cancel\\.")
		return nil
	}
	t.finishInvite(chatId, group.GroupId, handle)
	return nil
}

// link mints a one-time invite link for the caller's group.
func (t *TgBot) link(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveMessage.Chat.Id

	group, err := t.core.OwnGroup(chatId)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			t.plainResponse(chatId, "You do not own a group\\. Create one with /create\\.")
			return nil
		}
		t.reportError(chatId, "link", err)
		return nil
	}

	code, err := t.core.IssueInvite(chatId, group.GroupId)
	if err != nil {
		t.reportError(chatId, "link", err)
		return nil
	}
	t.plainResponse(chatId, fmt.Sprintf(
		"One\\-time invite link for *%s*:\n%s\nWhoever opens it first joins without approval\\.",
		Sanitize(group.Name), Sanitize(t.core.InviteLink(code.Code)),
	))
	return nil
}

// remove drops a member from the caller's group by @username, phone or
// numeric chat ID.
func (t *TgBot) remove(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveMessage.Chat.Id

	group, err := t.core.OwnGroup(chatId)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			t.plainResponse(chatId, "You do not own a group\\.")
			return nil
		}
		t.reportError(chatId, "remove", err)
		return nil
	}

	handle := commandArgs(ctx.EffectiveMessage.Text)
	if handle == "" {
		t.plainResponse(chatId, "Usage: /remove @username")
		return nil
	}
	target, err := t.core.ResolveHandle(handle)
	if err != nil {
		t.plainResponse(chatId, "I do not know that user\\.")
		return nil
	}
	if target == chatId {
		t.plainResponse(chatId, "You cannot remove yourself from your own group\\.")
		return nil
	}

	updated, err := t.core.RemoveMember(chatId, group.GroupId, target)
	if err != nil {
		t.reportError(chatId, "remove", err)
		return nil
	}
	t.plainResponse(chatId, fmt.Sprintf("Removed\\. *%s* now has %d members\\.", Sanitize(updated.Name), len(updated.Members)))
	t.plainResponse(target, fmt.Sprintf("You have been removed from the group *%s*\\.", Sanitize(updated.Name)))
	t.setChatCommands(target)
	return nil
}

// leave removes the caller from a group. With one membership the argument
// is optional; with several the groups are offered as buttons.
func (t *TgBot) leave(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveMessage.Chat.Id

	if groupId := commandArgs(ctx.EffectiveMessage.Text); groupId != "" {
		t.finishLeave(chatId, groupId)
		return nil
	}

	groups, err := t.core.MemberGroups(chatId)
	if err != nil {
		t.reportError(chatId, "leave", err)
		return nil
	}
	own, err := t.core.OwnGroup(chatId)
	if err == nil {
		// The own group stays; only list the rest.
		filtered := groups[:0]
		for _, g := range groups {
			if g.GroupId != own.GroupId {
				filtered = append(filtered, g)
			}
		}
		groups = filtered
	}

	switch len(groups) {
	case 0:
		t.plainResponse(chatId, "You are not a member of any group you could leave\\.")
	case 1:
		t.finishLeave(chatId, groups[0].GroupId)
	default:
		t.sendWithKeyboard(chatId, "Which group do you want to leave?", buildLeaveButtons(groups))
	}
	return nil
}

func (t *TgBot) finishLeave(chatId int64, groupId string) {
	group, wasMember, err := t.core.Leave(chatId, groupId)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrAlreadyOwner):
			t.plainResponse(chatId, "You own that group and cannot leave it\\.")
		case errors.Is(err, entity.ErrNotFound):
			t.plainResponse(chatId, "You are not a member of that group\\.")
		case errors.Is(err, entity.ErrInvalidInput):
			t.plainResponse(chatId, "That does not look like a group ID\\.")
		default:
			t.reportError(chatId, "leave", err)
		}
		return
	}
	if !wasMember {
		// Only a pending request was on file; nobody actually departed.
		t.plainResponse(chatId, fmt.Sprintf("Your request to join *%s* was withdrawn\\.", Sanitize(group.Name)))
		t.plainResponse(group.OwnerChatId, fmt.Sprintf(
			"%s withdrew their request to join *%s*\\.",
			Sanitize(t.accountLabel(chatId)), Sanitize(group.Name),
		))
		return
	}
	t.plainResponse(chatId, fmt.Sprintf("You left *%s*\\.", Sanitize(group.Name)))
	t.setChatCommands(chatId)
	t.plainResponse(group.OwnerChatId, fmt.Sprintf(
		"%s left *%s*\\.", Sanitize(t.accountLabel(chatId)), Sanitize(group.Name),
	))
}

// name changes the caller's display name.
func (t *TgBot) name(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveMessage.Chat.Id
	newName := commandArgs(ctx.EffectiveMessage.Text)
	if newName == "" {
		t.sessions.Begin(chatId, entity.ActionRenameAccount, "")
		t.plainResponse(chatId, "Send your new display name, or /cancel\\.")
		return nil
	}
	t.finishRename(chatId, newName)
	return nil
}

func (t *TgBot) cancel(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveMessage.Chat.Id
	if t.sessions.Clear(chatId) {
		t.plainResponse(chatId, "Cancelled\\.")
	} else {
		t.plainResponse(chatId, "Nothing to cancel\\.")
	}
	return nil
}

func (t *TgBot) help(_ *tgbotapi.Bot, ctx *ext.Context) error {
	t.showHelp(ctx.EffectiveMessage.Chat.Id)
	return nil
}

func (t *TgBot) showHelp(chatId int64) {
	t.plainResponse(chatId,
		"*Commands*\n"+
			"/create \\- create your group\n"+
			"/join \\- request to join a group by ID\n"+
			"/mygroup \\- show your group and pending requests\n"+
			"/members \\- list your group members\n"+
			"/invite \\- invite a member by @username or phone\n"+
			"/link \\- one\\-time invite link\n"+
			"/remove \\- remove a member\n"+
			"/leave \\- leave a group\n"+
			"/name \\- change your display name\n"+
			"/cancel \\- abort the current step",
	)
}

// onContact indexes a shared contact card so the phone number resolves in
// /invite. Sharing your own card links your phone to your chat.
func (t *TgBot) onContact(_ *tgbotapi.Bot, ctx *ext.Context) error {
	msg := ctx.EffectiveMessage
	contact := msg.Contact
	if contact == nil || contact.UserId == 0 {
		return nil
	}

	err := t.core.UpsertContact(contact.UserId, "", contact.PhoneNumber)
	if err != nil {
		t.log.Warn("indexing contact", sl.Chat(contact.UserId), sl.Err(err))
		t.plainResponse(msg.Chat.Id, "Could not save that contact\\.")
		return nil
	}
	t.plainResponse(msg.Chat.Id, "Contact saved\\. The phone number can now be used with /invite\\.")
	return nil
}

// commandArgs returns the text after the command itself, trimmed.
func commandArgs(text string) string {
	_, rest, found := strings.Cut(strings.TrimSpace(text), " ")
	if !found {
		return ""
	}
	return strings.TrimSpace(rest)
}

func senderName(ctx *ext.Context) string {
	from := ctx.EffectiveMessage.From
	if from == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimSpace(from.FirstName) + " " + strings.TrimSpace(from.LastName))
}

func senderUsername(ctx *ext.Context) string {
	from := ctx.EffectiveMessage.From
	if from == nil {
		return ""
	}
	return from.Username
}
