package sqlite

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"teambot/entity"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(filepath.Join(t.TempDir(), "test.db"), log)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
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

	if _, err = s.RegisterAccount(0, "x", ""); !errors.Is(err, entity.ErrInvalidInput) {
		t.Errorf("zero chat id: got %v, want ErrInvalidInput", err)
	}
}

func TestGroupLifecycle(t *testing.T) {
	s := newTestStore(t)
	const owner, requester = int64(1), int64(2)

	g, err := s.CreateGroup("Backend", owner)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !g.IsMember(owner) {
		t.Error("owner should be a member from the start")
	}

	if _, err = s.CreateGroup("Second", owner); !errors.Is(err, entity.ErrAlreadyOwner) {
		t.Errorf("second create: got %v, want ErrAlreadyOwner", err)
	}

	g, err = s.RequestJoin(g.GroupId, requester)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !g.IsPending(requester) {
		t.Error("requester should be pending")
	}

	if _, err = s.RequestJoin(g.GroupId, owner); !errors.Is(err, entity.ErrAlreadyMember) {
		t.Errorf("member request: got %v, want ErrAlreadyMember", err)
	}

	g, err = s.ApproveJoin(g.GroupId, requester)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !g.IsMember(requester) || g.IsPending(requester) {
		t.Errorf("members=%v pending=%v after approve", g.Members, g.Pending)
	}

	groups, err := s.GroupsByMember(requester)
	if err != nil || len(groups) != 1 {
		t.Errorf("member groups = %v, %v", groups, err)
	}

	g, err = s.RemoveMember(g.GroupId, owner)
	if err != nil {
		t.Fatalf("remove owner: %v", err)
	}
	if !g.IsMember(owner) {
		t.Error("owner must survive RemoveMember")
	}

	g, err = s.RemoveMember(g.GroupId, requester)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if g.IsMember(requester) {
		t.Error("requester should be removed")
	}

	if _, err = s.RequestJoin("G000000", 5); !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("unknown group: got %v, want ErrNotFound", err)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := New(path, log)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	g, err := s.CreateGroup("Durable", 7)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err = s.RequestJoin(g.GroupId, 8); err != nil {
		t.Fatalf("request: %v", err)
	}
	if err = s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := New(path, log)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Group(g.GroupId)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Name != "Durable" || !got.IsMember(7) || !got.IsPending(8) {
		t.Errorf("reloaded group = %+v", got)
	}
}

func TestDenyJoin(t *testing.T) {
	s := newTestStore(t)

	g, err := s.CreateGroup("Review", 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err = s.RequestJoin(g.GroupId, 2); err != nil {
		t.Fatalf("request: %v", err)
	}

	g, err = s.DenyJoin(g.GroupId, 2)
	if err != nil {
		t.Fatalf("deny: %v", err)
	}
	if g.IsPending(2) || g.IsMember(2) {
		t.Errorf("chat 2 should be gone, members=%v pending=%v", g.Members, g.Pending)
	}
}

func TestUpsertContact(t *testing.T) {
	s := newTestStore(t)

	if err := s.UpsertContact(10, "Alice", "+48123456789"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if chatId, err := s.ChatByUsername("ALICE"); err != nil || chatId != 10 {
		t.Errorf("username lookup: %d, %v", chatId, err)
	}
	if chatId, err := s.ChatByPhone("+48123456789"); err != nil || chatId != 10 {
		t.Errorf("phone lookup: %d, %v", chatId, err)
	}

	// Empty fields keep previous values.
	if err := s.UpsertContact(10, "", ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if chatId, err := s.ChatByUsername("alice"); err != nil || chatId != 10 {
		t.Errorf("username lost: %d, %v", chatId, err)
	}

	if _, err := s.ChatByUsername("nobody"); !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("unknown handle: got %v, want ErrNotFound", err)
	}
}

func TestInviteCodes(t *testing.T) {
	s := newTestStore(t)

	g, err := s.CreateGroup("Invited", 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	code := &entity.InviteCode{
		Code:      "abc12345",
		GroupId:   g.GroupId,
		CreatedBy: 1,
		CreatedAt: time.Now().UTC(),
		MaxUses:   1,
	}
	if err = s.CreateInviteCode(code); err != nil {
		t.Fatalf("create code: %v", err)
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
