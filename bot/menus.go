package bot

import (
	"errors"

	"teambot/entity"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

// Captions for the persistent reply keyboard. onText matches these before
// giving up on free text.
const (
	btnCreate  = "➕ Create group"
	btnJoin    = "🔑 Join group"
	btnMyGroup = "👥 My group"
	btnHelp    = "ℹ️ Help"
)

// mainMenu builds the reply keyboard for a chat. The create button
// disappears once the chat owns a group.
func (t *TgBot) mainMenu(chatId int64) tgbotapi.ReplyKeyboardMarkup {
	first := []tgbotapi.KeyboardButton{{Text: btnCreate}, {Text: btnJoin}}
	if _, err := t.core.OwnGroup(chatId); err == nil {
		first = []tgbotapi.KeyboardButton{{Text: btnMyGroup}, {Text: btnJoin}}
	}
	return tgbotapi.ReplyKeyboardMarkup{
		Keyboard: [][]tgbotapi.KeyboardButton{
			first,
			{{Text: btnHelp}},
		},
		ResizeKeyboard: true,
	}
}

// Per-chat command lists for Telegram's menu button (the "/" icon in the
// chat input). Pushed via SetMyCommands with BotCommandScopeChat so owners
// see the management commands and plain members do not.

var commandsDefault = []tgbotapi.BotCommand{
	{Command: "start", Description: "Register with the bot"},
	{Command: "create", Description: "Create a group"},
	{Command: "join", Description: "Request to join a group"},
	{Command: "help", Description: "Show available commands"},
}

var commandsMember = []tgbotapi.BotCommand{
	{Command: "create", Description: "Create a group"},
	{Command: "join", Description: "Request to join a group"},
	{Command: "leave", Description: "Leave a group"},
	{Command: "name", Description: "Change your display name"},
	{Command: "help", Description: "Show available commands"},
}

var commandsOwner = []tgbotapi.BotCommand{
	{Command: "mygroup", Description: "Show your group"},
	{Command: "members", Description: "List group members"},
	{Command: "invite", Description: "Add a member"},
	{Command: "link", Description: "One-time invite link"},
	{Command: "remove", Description: "Remove a member"},
	{Command: "join", Description: "Request to join a group"},
	{Command: "leave", Description: "Leave a group"},
	{Command: "name", Description: "Change your display name"},
	{Command: "help", Description: "Show available commands"},
}

// setDefaultCommands sets the menu shown to chats the bot has not seen yet.
func (t *TgBot) setDefaultCommands() {
	_, err := t.api.SetMyCommands(commandsDefault, &tgbotapi.SetMyCommandsOpts{
		Scope: tgbotapi.BotCommandScopeDefault{},
	})
	if err != nil {
		t.log.Warn("setting default commands", "error", err)
	}
}

// setChatCommands refreshes the menu for one chat after its role changed
// (group created, joined, left, removed).
func (t *TgBot) setChatCommands(chatId int64) {
	commands := commandsDefault

	if _, err := t.core.OwnGroup(chatId); err == nil {
		commands = commandsOwner
	} else if !errors.Is(err, entity.ErrNotFound) {
		return
	} else if groups, err := t.core.MemberGroups(chatId); err == nil && len(groups) > 0 {
		commands = commandsMember
	}

	_, err := t.api.SetMyCommands(commands, &tgbotapi.SetMyCommandsOpts{
		Scope: tgbotapi.BotCommandScopeChat{ChatId: chatId},
	})
	if err != nil {
		t.log.Warn("setting chat commands", "chat_id", chatId, "error", err)
	}
}
