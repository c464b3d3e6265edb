package bot

import (
	"fmt"
	"log/slog"
	"strings"

	"teambot/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

func (t *TgBot) plainResponse(chatId int64, text string) {
	if text == "" {
		t.log.With("id", chatId).Debug("empty message")
		return
	}

	_, err := t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Warn("sending message", sl.Err(err))
		_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Error("sending safe message", sl.Err(err))
		}
	}
}

func Sanitize(input string) string {
	reservedChars := "\\_{}#+-.!|()[]=*"
	sanitized := ""
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sanitized += "\\" + string(char)
		} else {
			sanitized += string(char)
		}
	}
	return sanitized
}

// menuResponse sends a message with the chat's main menu keyboard attached.
func (t *TgBot) menuResponse(chatId int64, text string) {
	if text == "" {
		return
	}
	menu := t.mainMenu(chatId)
	_, err := t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode:   "MarkdownV2",
		ReplyMarkup: menu,
	})
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Warn("sending menu message", sl.Err(err))
		_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{ReplyMarkup: menu})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Error("sending safe menu message", sl.Err(err))
		}
	}
}

// sendWithKeyboard sends a message with an inline keyboard attached.
func (t *TgBot) sendWithKeyboard(chatId int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	if text == "" {
		return
	}
	_, err := t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode:   "MarkdownV2",
		ReplyMarkup: keyboard,
	})
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Warn("sending message with keyboard", sl.Err(err))
		_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
			ReplyMarkup: keyboard,
		})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Error("sending message with keyboard fallback", sl.Err(err))
		}
	}
}

// accountLabel names a chat for display: the stored account name when one
// exists, the raw chat ID otherwise.
func (t *TgBot) accountLabel(chatId int64) string {
	acc, err := t.core.Account(chatId)
	if err != nil {
		return fmt.Sprintf("%d", chatId)
	}
	return acc.Display()
}

func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			parts = append(parts, text)
			break
		}
		// Try to split at newline
		cutAt := maxLen
		nlIdx := strings.LastIndex(text[:maxLen], "\n")
		if nlIdx > 0 {
			cutAt = nlIdx + 1
		}
		parts = append(parts, text[:cutAt])
		text = text[cutAt:]
	}
	return parts
}

// reportError logs the failure and sends a neutral message to the user.
func (t *TgBot) reportError(chatId int64, command string, err error) {
	t.log.Error("bot command failed",
		slog.String("command", command),
		sl.Chat(chatId),
		sl.Err(err),
	)
	t.plainResponse(chatId, "Something went wrong\\. Please try again later\\.")
}
