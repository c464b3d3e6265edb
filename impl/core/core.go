// Package core holds the business rules between the transports (bot, HTTP)
// and storage: registration, the one-group-per-owner policy, owner-only
// authorization for membership decisions, handle resolution and invite links.
package core

import (
	"fmt"
	"log/slog"
	"strings"
	"teambot/entity"
	"teambot/internal/storage"
	"teambot/lib/ident"
	"teambot/lib/sl"
	"time"

	"github.com/google/uuid"
)

const inviteCodeLength = 8

type Core struct {
	db          storage.Store
	log         *slog.Logger
	botUsername string
}

func New(db storage.Store, log *slog.Logger) *Core {
	if db == nil {
		panic("store is nil")
	}
	return &Core{
		db:  db,
		log: log.With(sl.Module("core")),
	}
}

// SetBotUsername supplies the bot's public name once the Telegram API has
// been contacted; deep links are built from it.
func (c *Core) SetBotUsername(name string) {
	c.botUsername = name
}

// Register creates or refreshes the account for a chat and keeps the user
// index current. Called on every /start.
func (c *Core) Register(chatId int64, name, username string) (*entity.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = username
	}
	if name == "" {
		name = fmt.Sprintf("user %d", chatId)
	}
	acc, err := c.db.RegisterAccount(chatId, name, username)
	if err != nil {
		return nil, fmt.Errorf("registering account: %w", err)
	}
	if err = c.db.UpsertContact(chatId, username, ""); err != nil {
		c.log.Warn("updating user index", sl.Chat(chatId), sl.Err(err))
	}
	return acc, nil
}

func (c *Core) Account(chatId int64) (*entity.Account, error) {
	return c.db.AccountByChat(chatId)
}

// Rename changes the display name of the chat's own account.
func (c *Core) Rename(chatId int64, name string) (*entity.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, entity.ErrInvalidInput
	}
	acc, err := c.db.AccountByChat(chatId)
	if err != nil {
		return nil, err
	}
	acc.DisplayName = name
	if err = c.db.UpdateAccount(acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// UpsertContact records handles seen on inbound messages (username on any
// message, phone when a contact card is shared). Phone numbers are stored in
// the same canonical form ResolveHandle looks them up in, so a number saved
// with separators still resolves.
func (c *Core) UpsertContact(chatId int64, username, phone string) error {
	if p, ok := normalizePhone(phone); ok {
		phone = p
	}
	return c.db.UpsertContact(chatId, username, phone)
}

func (c *Core) CreateGroup(ownerChatId int64, name string) (*entity.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, entity.ErrInvalidInput
	}
	g, err := c.db.CreateGroup(name, ownerChatId)
	if err != nil {
		return nil, err
	}
	c.log.Info("group created", sl.Group(g.GroupId), sl.Chat(ownerChatId))
	return g, nil
}

func (c *Core) Group(groupId string) (*entity.Group, error) {
	gid, err := normalizeGroupId(groupId)
	if err != nil {
		return nil, err
	}
	return c.db.Group(gid)
}

func (c *Core) OwnGroup(chatId int64) (*entity.Group, error) {
	return c.db.GroupByOwner(chatId)
}

func (c *Core) MemberGroups(chatId int64) ([]*entity.Group, error) {
	return c.db.GroupsByMember(chatId)
}

func (c *Core) RequestJoin(groupId string, chatId int64) (*entity.Group, error) {
	gid, err := normalizeGroupId(groupId)
	if err != nil {
		return nil, err
	}
	g, err := c.db.RequestJoin(gid, chatId)
	if err != nil {
		return nil, err
	}
	c.log.Info("join requested", sl.Group(gid), sl.Chat(chatId))
	return g, nil
}

// Approve moves a requester from pending to members. Owner-only.
func (c *Core) Approve(actor int64, groupId string, chatId int64) (*entity.Group, error) {
	gid, err := c.requireOwner(actor, groupId)
	if err != nil {
		return nil, err
	}
	g, err := c.db.ApproveJoin(gid, chatId)
	if err != nil {
		return nil, err
	}
	c.log.Info("join approved", sl.Group(gid), sl.Chat(chatId))
	return g, nil
}

// Deny drops a pending request without touching members. Owner-only.
func (c *Core) Deny(actor int64, groupId string, chatId int64) (*entity.Group, error) {
	gid, err := c.requireOwner(actor, groupId)
	if err != nil {
		return nil, err
	}
	g, err := c.db.DenyJoin(gid, chatId)
	if err != nil {
		return nil, err
	}
	c.log.Info("join denied", sl.Group(gid), sl.Chat(chatId))
	return g, nil
}

// AddMember adds a chat directly, bypassing the approval flow. Owner-only.
func (c *Core) AddMember(actor int64, groupId string, chatId int64) (*entity.Group, error) {
	gid, err := c.requireOwner(actor, groupId)
	if err != nil {
		return nil, err
	}
	return c.db.AddMember(gid, chatId)
}

// RemoveMember drops a chat from the group. Owner-only; removing the owner
// is a no-op by store contract.
func (c *Core) RemoveMember(actor int64, groupId string, chatId int64) (*entity.Group, error) {
	gid, err := c.requireOwner(actor, groupId)
	if err != nil {
		return nil, err
	}
	return c.db.RemoveMember(gid, chatId)
}

// Leave removes the calling chat from a group it belongs to. The owner
// cannot leave their own group. The second return reports whether the chat
// was a full member; false means only a pending request was withdrawn.
func (c *Core) Leave(chatId int64, groupId string) (*entity.Group, bool, error) {
	gid, err := normalizeGroupId(groupId)
	if err != nil {
		return nil, false, err
	}
	g, err := c.db.Group(gid)
	if err != nil {
		return nil, false, err
	}
	if g.IsOwner(chatId) {
		return nil, false, entity.ErrAlreadyOwner
	}
	wasMember := g.IsMember(chatId)
	if !wasMember && !g.IsPending(chatId) {
		return nil, false, entity.ErrNotFound
	}
	g, err = c.db.RemoveMember(gid, chatId)
	if err != nil {
		return nil, false, err
	}
	return g, wasMember, nil
}

// ResolveHandle maps a @username or phone number to a chat id via the user
// index. Bare words are tried as usernames.
func (c *Core) ResolveHandle(handle string) (int64, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return 0, entity.ErrInvalidInput
	}
	if strings.HasPrefix(handle, "@") {
		return c.db.ChatByUsername(strings.TrimPrefix(handle, "@"))
	}
	if phone, ok := normalizePhone(handle); ok {
		return c.db.ChatByPhone(phone)
	}
	return c.db.ChatByUsername(handle)
}

// IssueInvite mints a one-time join code for the group. Owner-only.
func (c *Core) IssueInvite(actor int64, groupId string) (*entity.InviteCode, error) {
	gid, err := c.requireOwner(actor, groupId)
	if err != nil {
		return nil, err
	}
	code := &entity.InviteCode{
		Code:      uuid.New().String()[:inviteCodeLength],
		GroupId:   gid,
		CreatedBy: actor,
		CreatedAt: time.Now().UTC(),
		MaxUses:   1,
	}
	if err = c.db.CreateInviteCode(code); err != nil {
		return nil, err
	}
	c.log.Info("invite issued", sl.Group(gid), sl.Chat(actor))
	return code, nil
}

// RedeemInvite burns an invite code and adds the redeemer straight to the
// group's members.
func (c *Core) RedeemInvite(code string, chatId int64) (*entity.Group, error) {
	inv, err := c.db.UseInviteCode(strings.TrimSpace(code), chatId)
	if err != nil {
		return nil, err
	}
	g, err := c.db.AddMember(inv.GroupId, chatId)
	if err != nil {
		return nil, err
	}
	c.log.Info("invite redeemed", sl.Group(inv.GroupId), sl.Chat(chatId))
	return g, nil
}

// JoinLink is the shareable deep link that starts the join flow for a group.
func (c *Core) JoinLink(groupId string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", c.botUsername, groupId)
}

// InviteLink is the deep link form of a one-time invite code.
func (c *Core) InviteLink(code string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", c.botUsername, code)
}

func (c *Core) requireOwner(actor int64, groupId string) (string, error) {
	gid, err := normalizeGroupId(groupId)
	if err != nil {
		return "", err
	}
	g, err := c.db.Group(gid)
	if err != nil {
		return "", err
	}
	if !g.IsOwner(actor) {
		return "", entity.ErrUnauthorized
	}
	return gid, nil
}

func normalizeGroupId(raw string) (string, error) {
	gid := strings.ToUpper(strings.TrimSpace(raw))
	if !ident.Valid(ident.Group, gid) {
		return "", entity.ErrInvalidInput
	}
	return gid, nil
}

// normalizePhone strips spaces, dashes and parentheses, keeping an optional
// leading plus. Reports false for anything that does not look like a number.
func normalizePhone(raw string) (string, bool) {
	var sb strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '+' && i == 0:
			sb.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
			// separators, dropped
		default:
			return "", false
		}
	}
	digits := strings.TrimPrefix(sb.String(), "+")
	if len(digits) < 5 {
		return "", false
	}
	return sb.String(), true
}
