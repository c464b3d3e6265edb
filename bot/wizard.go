package bot

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"teambot/entity"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

// sessionTTL bounds how long a half-finished wizard step stays valid.
// A stale prompt answered next week should not silently mutate state.
const sessionTTL = 30 * time.Minute

// SessionManager keeps the per-chat wizard state. One session per chat;
// starting a new step replaces whatever was pending.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[int64]*entity.Session
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[int64]*entity.Session),
	}
}

// Begin opens a wizard step for the chat, replacing any pending one.
func (m *SessionManager) Begin(chatId int64, action entity.SessionAction, groupId string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[chatId] = &entity.Session{
		ChatId:    chatId,
		Action:    action,
		GroupId:   groupId,
		UpdatedAt: time.Now(),
	}
}

// Take returns the pending session for the chat and clears it. Expired
// sessions are dropped and reported as absent.
func (m *SessionManager) Take(chatId int64) (*entity.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatId]
	if !ok {
		return nil, false
	}
	delete(m.sessions, chatId)
	if time.Since(s.UpdatedAt) > sessionTTL {
		return nil, false
	}
	return s, true
}

// Clear drops the pending session for the chat, if any. Reports whether
// something was pending.
func (m *SessionManager) Clear(chatId int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[chatId]
	delete(m.sessions, chatId)
	return ok
}

// onText routes free-form text through the pending wizard step. With no
// session open the message is answered with a hint.
func (t *TgBot) onText(_ *tgbotapi.Bot, ctx *ext.Context) error {
	msg := ctx.EffectiveMessage
	if msg == nil {
		return nil
	}
	chatId := msg.Chat.Id
	text := strings.TrimSpace(msg.Text)

	session, ok := t.sessions.Take(chatId)
	if !ok {
		t.onCaption(chatId, text)
		return nil
	}

	switch session.Action {
	case entity.ActionCreateGroupName:
		t.finishCreate(chatId, text)
	case entity.ActionJoinGroupId:
		t.finishJoin(chatId, text)
	case entity.ActionInviteHandle:
		t.finishInvite(chatId, session.GroupId, text)
	case entity.ActionRenameAccount:
		t.finishRename(chatId, text)
	default:
		t.plainResponse(chatId, "Nothing is pending\\. Send /help for the list of commands\\.")
	}
	return nil
}

// onCaption matches the fixed main-menu button captions. Anything else gets
// a hint.
func (t *TgBot) onCaption(chatId int64, text string) {
	switch text {
	case btnCreate:
		t.sessions.Begin(chatId, entity.ActionCreateGroupName, "")
		t.plainResponse(chatId, "What should the group be called? Send the name, or /cancel\\.")
	case btnJoin:
		t.sessions.Begin(chatId, entity.ActionJoinGroupId, "")
		t.plainResponse(chatId, "Send the group ID you want to join, or /cancel\\.")
	case btnMyGroup:
		t.showMyGroup(chatId)
	case btnHelp:
		t.showHelp(chatId)
	default:
		t.plainResponse(chatId, "I did not understand that\\. Send /help for the list of commands\\.")
	}
}

func (t *TgBot) finishCreate(chatId int64, name string) {
	group, err := t.core.CreateGroup(chatId, name)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrAlreadyOwner):
			t.plainResponse(chatId, "You already own a group\\. Each account can own one group\\.")
		case errors.Is(err, entity.ErrInvalidInput):
			t.plainResponse(chatId, "Group name cannot be empty\\. Try /create again\\.")
		default:
			t.reportError(chatId, "create", err)
		}
		return
	}
	t.setChatCommands(chatId)
	t.menuResponse(chatId, fmt.Sprintf(
		"Group *%s* created\\.\nID: `%s`\nShare this link to let people request to join:\n%s",
		Sanitize(group.Name), group.GroupId, Sanitize(t.core.JoinLink(group.GroupId)),
	))
}

func (t *TgBot) finishJoin(chatId int64, groupId string) {
	group, err := t.core.RequestJoin(groupId, chatId)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrInvalidInput):
			t.plainResponse(chatId, "That does not look like a group ID\\. IDs are six characters, like `G7K2MQ`\\.")
		case errors.Is(err, entity.ErrNotFound):
			t.plainResponse(chatId, "No group with that ID\\. Check it and try /join again\\.")
		case errors.Is(err, entity.ErrAlreadyMember):
			t.plainResponse(chatId, "You are already a member of that group\\.")
		default:
			t.reportError(chatId, "join", err)
		}
		return
	}
	t.plainResponse(chatId, fmt.Sprintf(
		"Request sent\\. The owner of *%s* will be asked to approve it\\.",
		Sanitize(group.Name),
	))
	t.relayJoinRequest(group, chatId)
}

// finishInvite resolves the handle and pushes a direct invitation with a
// join button. An unresolvable handle falls back to the shareable deep link.
func (t *TgBot) finishInvite(chatId int64, groupId, handle string) {
	group, err := t.core.Group(groupId)
	if err != nil {
		t.reportError(chatId, "invite", err)
		return
	}
	if !group.IsOwner(chatId) {
		t.plainResponse(chatId, "Only the group owner can invite members\\.")
		return
	}

	target, err := t.core.ResolveHandle(handle)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrNotFound):
			t.plainResponse(chatId, fmt.Sprintf(
				"Nobody with that username or phone has talked to me yet\\. Share this link instead:\n%s",
				Sanitize(t.core.JoinLink(group.GroupId)),
			))
		case errors.Is(err, entity.ErrInvalidInput):
			t.plainResponse(chatId, "Send a @username or a phone number\\.")
		default:
			t.reportError(chatId, "invite", err)
		}
		return
	}
	if group.IsMember(target) {
		t.plainResponse(chatId, "They are already a member\\.")
		return
	}

	t.sendWithKeyboard(target,
		fmt.Sprintf("You are invited to join the group *%s*\\.", Sanitize(group.Name)),
		buildJoinButton(group.GroupId, chatId),
	)
	t.plainResponse(chatId, "Invitation sent\\.")
}

func (t *TgBot) finishRename(chatId int64, name string) {
	acc, err := t.core.Rename(chatId, name)
	if err != nil {
		if errors.Is(err, entity.ErrInvalidInput) {
			t.plainResponse(chatId, "Name cannot be empty\\. Try /name again\\.")
			return
		}
		t.reportError(chatId, "name", err)
		return
	}
	t.plainResponse(chatId, fmt.Sprintf("You are now *%s*\\.", Sanitize(acc.DisplayName)))
}
