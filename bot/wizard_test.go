package bot

import (
	"testing"
	"time"

	"teambot/entity"
)

func TestSessionManager(t *testing.T) {
	m := NewSessionManager()

	t.Run("take returns and clears", func(t *testing.T) {
		m.Begin(1, entity.ActionCreateGroupName, "")
		s, ok := m.Take(1)
		if !ok || s.Action != entity.ActionCreateGroupName {
			t.Fatalf("got %+v, %v", s, ok)
		}
		if _, ok = m.Take(1); ok {
			t.Error("session should be consumed")
		}
	})

	t.Run("begin replaces pending step", func(t *testing.T) {
		m.Begin(2, entity.ActionCreateGroupName, "")
		m.Begin(2, entity.ActionInviteHandle, "G7K2MQ")
		s, ok := m.Take(2)
		if !ok || s.Action != entity.ActionInviteHandle || s.GroupId != "G7K2MQ" {
			t.Errorf("got %+v, %v", s, ok)
		}
	})

	t.Run("clear reports whether something was pending", func(t *testing.T) {
		m.Begin(3, entity.ActionJoinGroupId, "")
		if !m.Clear(3) {
			t.Error("clear should report a pending session")
		}
		if m.Clear(3) {
			t.Error("second clear should report nothing pending")
		}
	})

	t.Run("sessions are per chat", func(t *testing.T) {
		m.Begin(4, entity.ActionJoinGroupId, "")
		m.Begin(5, entity.ActionRenameAccount, "")
		s4, _ := m.Take(4)
		s5, _ := m.Take(5)
		if s4.Action != entity.ActionJoinGroupId || s5.Action != entity.ActionRenameAccount {
			t.Errorf("got %+v and %+v", s4, s5)
		}
	})

	t.Run("expired sessions are dropped", func(t *testing.T) {
		m.Begin(6, entity.ActionJoinGroupId, "")
		m.mu.Lock()
		m.sessions[6].UpdatedAt = time.Now().Add(-sessionTTL - time.Minute)
		m.mu.Unlock()
		if _, ok := m.Take(6); ok {
			t.Error("stale session should not be returned")
		}
	})
}
