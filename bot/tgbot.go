// Package bot implements the Telegram front end for team group membership.
//
// Architecture overview:
//   - tgbot.go    — TgBot struct, lifecycle (Start/Stop), Core interface
//   - commands.go  — User-facing commands: /start, /create, /join, /mygroup, /members, /invite, /link, /remove, /leave, /cancel, /help
//   - wizard.go    — SessionManager: per-chat multi-step input state
//   - callbacks.go — Inline keyboard builders and callback query handlers
//   - menus.go     — Per-chat command menus via Telegram's BotCommandScope API
//   - helpers.go   — Shared utilities: Sanitize, plainResponse, reportError
//
// Flow for a join request:
//
//	/start G7K2MQ (deep link) → core.RequestJoin → relay to owner with
//	Approve/Deny buttons → owner taps → core.Approve/Deny → message edited
//	in place, requester notified.
//
// Thread safety: handlers run on the dispatcher's goroutine pool; all shared
// wizard state lives in SessionManager behind its own mutex.
package bot

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"teambot/entity"
	"teambot/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/callbackquery"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/message"
)

// Core defines the business operations the bot depends on.
// Implemented by impl/core.
type Core interface {
	Register(chatId int64, name, username string) (*entity.Account, error)
	Account(chatId int64) (*entity.Account, error)
	Rename(chatId int64, name string) (*entity.Account, error)
	UpsertContact(chatId int64, username, phone string) error
	CreateGroup(ownerChatId int64, name string) (*entity.Group, error)
	Group(groupId string) (*entity.Group, error)
	OwnGroup(chatId int64) (*entity.Group, error)
	MemberGroups(chatId int64) ([]*entity.Group, error)
	RequestJoin(groupId string, chatId int64) (*entity.Group, error)
	Approve(actor int64, groupId string, chatId int64) (*entity.Group, error)
	Deny(actor int64, groupId string, chatId int64) (*entity.Group, error)
	AddMember(actor int64, groupId string, chatId int64) (*entity.Group, error)
	RemoveMember(actor int64, groupId string, chatId int64) (*entity.Group, error)
	Leave(chatId int64, groupId string) (*entity.Group, bool, error)
	ResolveHandle(handle string) (int64, error)
	IssueInvite(actor int64, groupId string) (*entity.InviteCode, error)
	RedeemInvite(code string, chatId int64) (*entity.Group, error)
	JoinLink(groupId string) string
	InviteLink(code string) string
	SetBotUsername(name string)
}

// TgBot is the central Telegram bot instance. Updates arrive either from
// long polling or from the HTTP webhook handler; both paths feed the same
// dispatcher.
type TgBot struct {
	log        *slog.Logger
	api        *tgbotapi.Bot
	core       Core
	sessions   *SessionManager
	dispatcher *ext.Dispatcher
	updater    *ext.Updater
	ready      atomic.Bool
}

func NewTgBot(apiKey string, core Core, log *slog.Logger) (*TgBot, error) {
	if core == nil {
		return nil, fmt.Errorf("core is nil")
	}

	tgBot := &TgBot{
		log:      log.With(sl.Module("tgbot")),
		core:     core,
		sessions: NewSessionManager(),
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api
	core.SetBotUsername(api.Username)

	tgBot.dispatcher = ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			tgBot.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})

	d := tgBot.dispatcher
	d.AddHandler(handlers.NewCommand("start", tgBot.start))
	d.AddHandler(handlers.NewCommand("create", tgBot.create))
	d.AddHandler(handlers.NewCommand("join", tgBot.join))
	d.AddHandler(handlers.NewCommand("mygroup", tgBot.myGroup))
	d.AddHandler(handlers.NewCommand("members", tgBot.members))
	d.AddHandler(handlers.NewCommand("invite", tgBot.invite))
	d.AddHandler(handlers.NewCommand("link", tgBot.link))
	d.AddHandler(handlers.NewCommand("remove", tgBot.remove))
	d.AddHandler(handlers.NewCommand("leave", tgBot.leave))
	d.AddHandler(handlers.NewCommand("name", tgBot.name))
	d.AddHandler(handlers.NewCommand("cancel", tgBot.cancel))
	d.AddHandler(handlers.NewCommand("help", tgBot.help))

	d.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbApprove), tgBot.onApproveCallback))
	d.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbDeny), tgBot.onDenyCallback))
	d.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbJoin), tgBot.onJoinCallback))
	d.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbLeave), tgBot.onLeaveCallback))

	// Plain text last: commands and callbacks above win, anything left goes
	// through the wizard.
	d.AddHandler(handlers.NewMessage(message.Contact, tgBot.onContact))
	d.AddHandler(handlers.NewMessage(message.Text, tgBot.onText))

	return tgBot, nil
}

// Start begins long polling and blocks until Stop is called.
func (t *TgBot) Start() error {
	t.updater = ext.NewUpdater(t.dispatcher, nil)

	t.setDefaultCommands()

	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}
	t.ready.Store(true)

	t.updater.Idle()
	return nil
}

// StartWebhook prepares the dispatcher for updates delivered over HTTP.
// The HTTP server owns the listener; ProcessUpdate is the entry point.
func (t *TgBot) StartWebhook() {
	t.setDefaultCommands()
	t.ready.Store(true)
}

// ProcessUpdate feeds a single update into the dispatcher. Used by the
// webhook handler.
func (t *TgBot) ProcessUpdate(update *tgbotapi.Update) error {
	return t.dispatcher.ProcessUpdate(t.api, update, nil)
}

// Ready reports whether the bot is accepting updates.
func (t *TgBot) Ready() bool {
	return t.ready.Load()
}

func (t *TgBot) Stop() {
	t.ready.Store(false)
	if t.updater != nil {
		t.log.Info("stopping telegram bot")
		t.updater.Stop()
	}
}
