package jsonfile

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"teambot/entity"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(t.TempDir(), log)
}

func TestRegisterAccount(t *testing.T) {
	s := newTestStore(t)

	acc, err := s.RegisterAccount(100, "Alice", "alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !strings.HasPrefix(acc.AccountId, "U") {
		t.Errorf("account id %q should start with U", acc.AccountId)
	}

	t.Run("idempotent for one chat", func(t *testing.T) {
		again, err := s.RegisterAccount(100, "Alice B", "alice")
		if err != nil {
			t.Fatalf("re-register: %v", err)
		}
		if again.AccountId != acc.AccountId {
			t.Errorf("got new id %q, want %q", again.AccountId, acc.AccountId)
		}
		if again.DisplayName != "Alice B" {
			t.Errorf("display name not refreshed: %q", again.DisplayName)
		}
	})

	t.Run("lookup by chat", func(t *testing.T) {
		found, err := s.AccountByChat(100)
		if err != nil {
			t.Fatalf("by chat: %v", err)
		}
		if found.AccountId != acc.AccountId {
			t.Errorf("got %q, want %q", found.AccountId, acc.AccountId)
		}
	})

	t.Run("unknown chat", func(t *testing.T) {
		_, err := s.AccountByChat(999)
		if !errors.Is(err, entity.ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("update missing account", func(t *testing.T) {
		err := s.UpdateAccount(&entity.Account{AccountId: "U000000", OwnerChatId: 1, DisplayName: "x"})
		if !errors.Is(err, entity.ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound", err)
		}
	})
}

func TestGroupLifecycle(t *testing.T) {
	s := newTestStore(t)
	const owner, requester = int64(1), int64(2)

	g, err := s.CreateGroup("Backend", owner)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(g.GroupId, "G") {
		t.Errorf("group id %q should start with G", g.GroupId)
	}
	if !g.IsMember(owner) {
		t.Error("owner should be a member from the start")
	}

	t.Run("one group per owner", func(t *testing.T) {
		_, err := s.CreateGroup("Second", owner)
		if !errors.Is(err, entity.ErrAlreadyOwner) {
			t.Errorf("got %v, want ErrAlreadyOwner", err)
		}
	})

	t.Run("request join", func(t *testing.T) {
		g, err := s.RequestJoin(g.GroupId, requester)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if !g.IsPending(requester) {
			t.Error("requester should be pending")
		}

		// Repeated requests stay a single entry.
		g, err = s.RequestJoin(g.GroupId, requester)
		if err != nil {
			t.Fatalf("repeat request: %v", err)
		}
		if len(g.Pending) != 1 {
			t.Errorf("pending = %v, want one entry", g.Pending)
		}
	})

	t.Run("member requesting again", func(t *testing.T) {
		_, err := s.RequestJoin(g.GroupId, owner)
		if !errors.Is(err, entity.ErrAlreadyMember) {
			t.Errorf("got %v, want ErrAlreadyMember", err)
		}
	})

	t.Run("approve moves pending to member", func(t *testing.T) {
		g, err := s.ApproveJoin(g.GroupId, requester)
		if err != nil {
			t.Fatalf("approve: %v", err)
		}
		if !g.IsMember(requester) || g.IsPending(requester) {
			t.Errorf("members=%v pending=%v after approve", g.Members, g.Pending)
		}
	})

	t.Run("deny drops pending only", func(t *testing.T) {
		if _, err := s.RequestJoin(g.GroupId, 3); err != nil {
			t.Fatalf("request: %v", err)
		}
		g, err := s.DenyJoin(g.GroupId, 3)
		if err != nil {
			t.Fatalf("deny: %v", err)
		}
		if g.IsPending(3) || g.IsMember(3) {
			t.Errorf("chat 3 should be gone, members=%v pending=%v", g.Members, g.Pending)
		}
	})

	t.Run("owner cannot be removed", func(t *testing.T) {
		g, err := s.RemoveMember(g.GroupId, owner)
		if err != nil {
			t.Fatalf("remove: %v", err)
		}
		if !g.IsMember(owner) {
			t.Error("owner must survive RemoveMember")
		}
	})

	t.Run("remove member", func(t *testing.T) {
		g, err := s.RemoveMember(g.GroupId, requester)
		if err != nil {
			t.Fatalf("remove: %v", err)
		}
		if g.IsMember(requester) {
			t.Error("requester should be removed")
		}
	})

	t.Run("unknown group", func(t *testing.T) {
		_, err := s.RequestJoin("G000000", 5)
		if !errors.Is(err, entity.ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound", err)
		}
	})
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := New(dir, log)
	g, err := s.CreateGroup("Durable", 7)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err = s.RequestJoin(g.GroupId, 8); err != nil {
		t.Fatalf("request: %v", err)
	}

	reopened := New(dir, log)
	got, err := reopened.Group(g.GroupId)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Name != "Durable" || !got.IsPending(8) {
		t.Errorf("reloaded group = %+v", got)
	}
}

func TestCorruptFileTreatedAsEmpty(t *testing.T) {
	dir := t.TempDir()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := os.WriteFile(filepath.Join(dir, fileGroups), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	s := New(dir, log)
	if _, err := s.Group("G123456"); !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	if _, err := s.CreateGroup("Fresh", 1); err != nil {
		t.Errorf("create after corrupt file: %v", err)
	}
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(dir, log)

	if _, err := s.CreateGroup("Clean", 1); err != nil {
		t.Fatalf("create: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("stale temp file %s", e.Name())
		}
	}
}

func TestConcurrentJoinRequests(t *testing.T) {
	s := newTestStore(t)
	g, err := s.CreateGroup("Busy", 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(chatId int64) {
			defer wg.Done()
			if _, err := s.RequestJoin(g.GroupId, chatId); err != nil {
				t.Errorf("request %d: %v", chatId, err)
			}
		}(int64(100 + i))
	}
	wg.Wait()

	got, err := s.Group(g.GroupId)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(got.Pending) != n {
		t.Errorf("pending = %d, want %d", len(got.Pending), n)
	}
}

func TestUserIndex(t *testing.T) {
	s := newTestStore(t)

	if err := s.UpsertContact(10, "Alice", "+48123456789"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	t.Run("username lookup is case insensitive", func(t *testing.T) {
		chatId, err := s.ChatByUsername("aLiCe")
		if err != nil || chatId != 10 {
			t.Errorf("got %d, %v", chatId, err)
		}
	})

	t.Run("phone lookup", func(t *testing.T) {
		chatId, err := s.ChatByPhone("+48123456789")
		if err != nil || chatId != 10 {
			t.Errorf("got %d, %v", chatId, err)
		}
	})

	t.Run("empty fields keep previous values", func(t *testing.T) {
		if err := s.UpsertContact(10, "", ""); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		if chatId, err := s.ChatByUsername("alice"); err != nil || chatId != 10 {
			t.Errorf("username lost: %d, %v", chatId, err)
		}
	})

	t.Run("username moving between chats", func(t *testing.T) {
		if err := s.UpsertContact(11, "alice", ""); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		chatId, err := s.ChatByUsername("alice")
		if err != nil || chatId != 11 {
			t.Errorf("got %d, %v, want 11", chatId, err)
		}
	})

	t.Run("unknown handle", func(t *testing.T) {
		if _, err := s.ChatByUsername("nobody"); !errors.Is(err, entity.ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound", err)
		}
	})
}

func TestInviteCodes(t *testing.T) {
	s := newTestStore(t)

	code := &entity.InviteCode{
		Code:      "abc12345",
		GroupId:   "G111111",
		CreatedBy: 1,
		CreatedAt: time.Now().UTC(),
		MaxUses:   1,
	}
	if err := s.CreateInviteCode(code); err != nil {
		t.Fatalf("create: %v", err)
	}

	inv, err := s.UseInviteCode("abc12345", 42)
	if err != nil {
		t.Fatalf("use: %v", err)
	}
	if inv.UsedBy != 42 || inv.UseCount != 1 {
		t.Errorf("invite after use = %+v", inv)
	}

	if _, err = s.UseInviteCode("abc12345", 43); !errors.Is(err, entity.ErrInviteUsed) {
		t.Errorf("second use: got %v, want ErrInviteUsed", err)
	}
	if _, err = s.UseInviteCode("missing", 44); !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("unknown code: got %v, want ErrNotFound", err)
	}
}
