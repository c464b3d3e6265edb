package bot

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	if got := Sanitize("a_b.c!d"); got != "a\\_b\\.c\\!d" {
		t.Errorf("got %q", got)
	}
	if got := Sanitize("plain"); got != "plain" {
		t.Errorf("got %q", got)
	}
}

func TestSplitMessage(t *testing.T) {
	t.Run("short text untouched", func(t *testing.T) {
		parts := splitMessage("hello", 4096)
		if len(parts) != 1 || parts[0] != "hello" {
			t.Errorf("got %v", parts)
		}
	})

	t.Run("splits at newline when possible", func(t *testing.T) {
		text := strings.Repeat("line\n", 100)
		parts := splitMessage(text, 64)
		for i, p := range parts {
			if len(p) > 64 {
				t.Errorf("part %d has %d bytes", i, len(p))
			}
		}
		if strings.Join(parts, "") != text {
			t.Error("parts do not reassemble to the original")
		}
	})

	t.Run("hard split without newlines", func(t *testing.T) {
		text := strings.Repeat("x", 200)
		parts := splitMessage(text, 64)
		if strings.Join(parts, "") != text {
			t.Error("parts do not reassemble to the original")
		}
	})
}

func TestCommandArgs(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"/create", ""},
		{"/create Backend Team", "Backend Team"},
		{"/join  G7K2MQ ", "G7K2MQ"},
		{"  /start abc123  ", "abc123"},
	}
	for _, tc := range cases {
		if got := commandArgs(tc.in); got != tc.want {
			t.Errorf("commandArgs(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
