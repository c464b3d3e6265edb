package bot

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"teambot/entity"
	"teambot/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

// Callback data prefixes for inline keyboard buttons.
// Telegram limits callback data to 64 bytes; the decision payload is a
// base64 token so a crafted button press cannot smuggle raw IDs through.
const (
	cbApprove = "a:" // a:<token>
	cbDeny    = "d:" // d:<token>
	cbJoin    = "j:" // j:<token>, token carries group id + inviting owner
	cbLeave   = "l:" // l:<group_id>
)

// encodeDecision packs a group ID and requester chat ID into an opaque
// callback token.
func encodeDecision(groupId string, chatId int64) string {
	payload := fmt.Sprintf("%s:%d", groupId, chatId)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// decodeDecision reverses encodeDecision. Any malformed token is rejected.
func decodeDecision(token string) (string, int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", 0, fmt.Errorf("decoding token: %w", err)
	}
	groupId, idStr, found := strings.Cut(string(raw), ":")
	if !found || groupId == "" {
		return "", 0, fmt.Errorf("malformed token")
	}
	chatId, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || chatId == 0 {
		return "", 0, fmt.Errorf("malformed token")
	}
	return groupId, chatId, nil
}

// buildDecisionButtons creates the approve/deny pair attached to a relayed
// join request.
func buildDecisionButtons(groupId string, chatId int64) tgbotapi.InlineKeyboardMarkup {
	token := encodeDecision(groupId, chatId)
	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
			{
				{Text: "Approve ✓", CallbackData: cbApprove + token},
				{Text: "Deny ✗", CallbackData: cbDeny + token},
			},
		},
	}
}

// buildJoinButton creates the accept button on a direct invitation. The
// token carries the inviting owner so acceptance runs with their authority.
func buildJoinButton(groupId string, ownerChatId int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
			{
				{Text: "Join group", CallbackData: cbJoin + encodeDecision(groupId, ownerChatId)},
			},
		},
	}
}

// buildLeaveButtons creates one button per group the user may leave.
func buildLeaveButtons(groups []*entity.Group) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			{Text: g.Name, CallbackData: cbLeave + g.GroupId},
		})
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// relayJoinRequest notifies the group owner about a pending request.
// Delivery is best effort: a blocked or unreachable owner only produces a
// log entry, the request stays pending either way.
func (t *TgBot) relayJoinRequest(group *entity.Group, requester int64) {
	text := fmt.Sprintf(
		"Join request for *%s* from %s",
		Sanitize(group.Name), Sanitize(t.accountLabel(requester)),
	)
	_, err := t.api.SendMessage(group.OwnerChatId, text, &tgbotapi.SendMessageOpts{
		ParseMode:   "MarkdownV2",
		ReplyMarkup: buildDecisionButtons(group.GroupId, requester),
	})
	if err != nil {
		t.log.Warn("relaying join request",
			sl.Group(group.GroupId),
			sl.Chat(group.OwnerChatId),
			sl.Err(err),
		)
	}
}

// onApproveCallback handles the inline "Approve" button on a relayed join
// request. The pressing chat must own the group; the check happens in core.
func (t *TgBot) onApproveCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	chatId := cq.From.Id

	groupId, requester, err := decodeDecision(strings.TrimPrefix(cq.Data, cbApprove))
	if err != nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Invalid data"})
		return nil
	}

	group, err := t.core.Approve(chatId, groupId, requester)
	if err != nil {
		t.answerDecisionError(cq, chatId, "approve", err)
		return nil
	}

	t.editDecisionMessage(cq, chatId, "✓ Approved")
	t.plainResponse(requester, fmt.Sprintf("Your request to join *%s* was approved\\!", Sanitize(group.Name)))
	t.setChatCommands(requester)

	_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Approved"})
	return nil
}

// onDenyCallback handles the inline "Deny" button. The requester is told
// the outcome without naming who pressed it.
func (t *TgBot) onDenyCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	chatId := cq.From.Id

	groupId, requester, err := decodeDecision(strings.TrimPrefix(cq.Data, cbDeny))
	if err != nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Invalid data"})
		return nil
	}

	group, err := t.core.Deny(chatId, groupId, requester)
	if err != nil {
		t.answerDecisionError(cq, chatId, "deny", err)
		return nil
	}

	t.editDecisionMessage(cq, chatId, "✗ Denied")
	t.plainResponse(requester, fmt.Sprintf("Your request to join *%s* was declined\\.", Sanitize(group.Name)))

	_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Denied"})
	return nil
}

// onJoinCallback handles the accept button on a direct invitation. The
// presser joins as a member right away; the invitation was owner-initiated,
// so no approval round trip happens.
func (t *TgBot) onJoinCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	chatId := cq.From.Id

	groupId, owner, err := decodeDecision(strings.TrimPrefix(cq.Data, cbJoin))
	if err != nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Invalid data"})
		return nil
	}

	group, err := t.core.AddMember(owner, groupId, chatId)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrUnauthorized), errors.Is(err, entity.ErrNotFound):
			// The inviter lost the group since the invitation was sent.
			_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Invitation no longer valid", ShowAlert: true})
		default:
			t.reportError(chatId, "join:callback", err)
			_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Error occurred"})
		}
		return nil
	}

	t.editDecisionMessage(cq, chatId, "✓ Joined")
	t.menuResponse(chatId, fmt.Sprintf("Welcome to *%s*\\!", Sanitize(group.Name)))
	t.setChatCommands(chatId)
	t.plainResponse(group.OwnerChatId, fmt.Sprintf(
		"%s accepted the invitation to *%s*\\.",
		Sanitize(t.accountLabel(chatId)), Sanitize(group.Name),
	))

	_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Joined"})
	return nil
}

// onLeaveCallback handles the group picker offered by /leave.
func (t *TgBot) onLeaveCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	chatId := cq.From.Id

	groupId := strings.TrimPrefix(cq.Data, cbLeave)
	t.finishLeave(chatId, groupId)

	if msg := cq.Message; msg != nil {
		if im, ok := msg.(tgbotapi.Message); ok {
			_, _, _ = t.api.EditMessageReplyMarkup(&tgbotapi.EditMessageReplyMarkupOpts{
				ChatId:      chatId,
				MessageId:   im.MessageId,
				ReplyMarkup: tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}},
			})
		}
	}

	_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{})
	return nil
}

func (t *TgBot) answerDecisionError(cq *tgbotapi.CallbackQuery, chatId int64, action string, err error) {
	switch {
	case errors.Is(err, entity.ErrUnauthorized):
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Only the group owner can decide", ShowAlert: true})
	case errors.Is(err, entity.ErrNotFound):
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Group no longer exists"})
	default:
		t.reportError(chatId, action+":callback", err)
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Error occurred"})
	}
}

// editDecisionMessage replaces the buttons on the relayed request with the
// outcome so the same request cannot be decided twice from the UI.
func (t *TgBot) editDecisionMessage(cq *tgbotapi.CallbackQuery, chatId int64, result string) {
	msg := cq.Message
	if msg == nil {
		return
	}
	im, ok := msg.(tgbotapi.Message)
	if !ok {
		return
	}
	_, _, err := t.api.EditMessageText(
		fmt.Sprintf("%s\n\n%s", im.Text, result),
		&tgbotapi.EditMessageTextOpts{
			ChatId:    chatId,
			MessageId: im.MessageId,
		},
	)
	if err != nil {
		t.log.Warn("editing decision message", sl.Chat(chatId), sl.Err(err))
	}
}
