package ident

import (
	"errors"
	"strings"
	"testing"
	"teambot/entity"
)

func TestNew(t *testing.T) {
	t.Run("matches alphabet, length and prefix", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			id, err := New(Group, nil)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if len(id) != Length {
				t.Fatalf("expected length %d, got %q", Length, id)
			}
			if !strings.HasPrefix(id, "G") {
				t.Fatalf("expected G prefix, got %q", id)
			}
			if !Valid(Group, id) {
				t.Fatalf("generated id %q does not validate", id)
			}
		}
	})

	t.Run("redraws on collision", func(t *testing.T) {
		issued := map[string]bool{}
		for i := 0; i < 500; i++ {
			id, err := New(Account, func(candidate string) bool { return issued[candidate] })
			if err != nil {
				t.Fatalf("New failed on draw %d: %v", i, err)
			}
			if issued[id] {
				t.Fatalf("duplicate id issued: %q", id)
			}
			issued[id] = true
		}
	})

	t.Run("fails closed when space is exhausted", func(t *testing.T) {
		_, err := New(Group, func(string) bool { return true })
		if !errors.Is(err, entity.ErrIDSpaceExhausted) {
			t.Fatalf("expected ErrIDSpaceExhausted, got %v", err)
		}
	})
}

func TestValid(t *testing.T) {
	cases := []struct {
		kind Kind
		id   string
		want bool
	}{
		{Group, "G12345", true},
		{Group, "GABCDE", true},
		{Account, "U00000", true},
		{Group, "U12345", false}, // wrong tag
		{Group, "G1234", false},  // too short
		{Group, "G123456", false},
		{Group, "g12345", false}, // lowercase tag
		{Group, "G12a45", false}, // outside alphabet
		{Group, "", false},
	}
	for _, tc := range cases {
		if got := Valid(tc.kind, tc.id); got != tc.want {
			t.Errorf("Valid(%s, %q) = %v, want %v", tc.kind, tc.id, got, tc.want)
		}
	}
}
