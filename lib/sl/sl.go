package sl

import (
	"fmt"
	"log/slog"
)

func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Secret returns a string with the first 5 characters of the input string
// used to hide sensitive information in logs
func Secret(key, value string) slog.Attr {
	r := "***"
	if len(value) > 5 {
		r = fmt.Sprintf("%s***", value[0:5])
	}
	if value == "" {
		r = "?"
	}
	return slog.Attr{
		Key:   key,
		Value: slog.StringValue(r),
	}
}

func Module(mod string) slog.Attr {
	return slog.Attr{
		Key:   "mod",
		Value: slog.StringValue(mod),
	}
}

// Chat tags a log record with the Telegram chat it concerns.
func Chat(chatId int64) slog.Attr {
	return slog.Attr{
		Key:   "chat_id",
		Value: slog.Int64Value(chatId),
	}
}

// Group tags a log record with a group id.
func Group(groupId string) slog.Attr {
	return slog.Attr{
		Key:   "group_id",
		Value: slog.StringValue(groupId),
	}
}
