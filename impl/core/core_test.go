package core

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"teambot/entity"
	"teambot/internal/storage/jsonfile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCore(t *testing.T) *Core {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(jsonfile.New(t.TempDir(), log), log)
}

func TestRegisterNameFallbacks(t *testing.T) {
	c := newTestCore(t)

	acc, err := c.Register(1, "Alice", "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", acc.DisplayName)

	acc, err = c.Register(2, "", "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", acc.DisplayName)

	acc, err = c.Register(3, "   ", "")
	require.NoError(t, err)
	assert.Equal(t, "user 3", acc.DisplayName)
}

func TestRename(t *testing.T) {
	c := newTestCore(t)

	_, err := c.Register(1, "Alice", "alice")
	require.NoError(t, err)

	acc, err := c.Rename(1, "  Alicja  ")
	require.NoError(t, err)
	assert.Equal(t, "Alicja", acc.DisplayName)

	_, err = c.Rename(1, "   ")
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestJoinApproveFlow(t *testing.T) {
	c := newTestCore(t)
	const owner, requester = int64(1), int64(2)

	g, err := c.CreateGroup(owner, "Backend")
	require.NoError(t, err)

	_, err = c.RequestJoin(g.GroupId, requester)
	require.NoError(t, err)

	g, err = c.Approve(owner, g.GroupId, requester)
	require.NoError(t, err)
	assert.True(t, g.IsMember(requester))
	assert.False(t, g.IsPending(requester))
}

func TestOwnerOnlyDecisions(t *testing.T) {
	c := newTestCore(t)
	const owner, requester, stranger = int64(1), int64(2), int64(3)

	g, err := c.CreateGroup(owner, "Backend")
	require.NoError(t, err)
	_, err = c.RequestJoin(g.GroupId, requester)
	require.NoError(t, err)

	_, err = c.Approve(stranger, g.GroupId, requester)
	assert.ErrorIs(t, err, entity.ErrUnauthorized)

	_, err = c.Deny(stranger, g.GroupId, requester)
	assert.ErrorIs(t, err, entity.ErrUnauthorized)

	_, err = c.RemoveMember(stranger, g.GroupId, requester)
	assert.ErrorIs(t, err, entity.ErrUnauthorized)

	_, err = c.IssueInvite(stranger, g.GroupId)
	assert.ErrorIs(t, err, entity.ErrUnauthorized)
}

func TestLeave(t *testing.T) {
	c := newTestCore(t)
	const owner, member = int64(1), int64(2)

	g, err := c.CreateGroup(owner, "Backend")
	require.NoError(t, err)
	_, err = c.RequestJoin(g.GroupId, member)
	require.NoError(t, err)
	_, err = c.Approve(owner, g.GroupId, member)
	require.NoError(t, err)

	t.Run("owner cannot leave own group", func(t *testing.T) {
		_, _, err := c.Leave(owner, g.GroupId)
		assert.ErrorIs(t, err, entity.ErrAlreadyOwner)
	})

	t.Run("non-member cannot leave", func(t *testing.T) {
		_, _, err := c.Leave(99, g.GroupId)
		assert.ErrorIs(t, err, entity.ErrNotFound)
	})

	t.Run("pending requester withdraws, not leaves", func(t *testing.T) {
		const requester = int64(5)
		_, err := c.RequestJoin(g.GroupId, requester)
		require.NoError(t, err)

		g, wasMember, err := c.Leave(requester, g.GroupId)
		require.NoError(t, err)
		assert.False(t, wasMember)
		assert.False(t, g.IsPending(requester))
		assert.False(t, g.IsMember(requester))
	})

	t.Run("member leaves", func(t *testing.T) {
		g, wasMember, err := c.Leave(member, g.GroupId)
		require.NoError(t, err)
		assert.True(t, wasMember)
		assert.False(t, g.IsMember(member))
	})
}

func TestGroupIdNormalization(t *testing.T) {
	c := newTestCore(t)

	g, err := c.CreateGroup(1, "Backend")
	require.NoError(t, err)

	t.Run("lowercase input accepted", func(t *testing.T) {
		found, err := c.Group("  " + strings.ToLower(g.GroupId) + "  ")
		require.NoError(t, err)
		assert.Equal(t, g.GroupId, found.GroupId)
	})

	t.Run("garbage rejected before storage", func(t *testing.T) {
		_, err := c.Group("not-an-id")
		assert.ErrorIs(t, err, entity.ErrInvalidInput)

		_, err = c.RequestJoin("'; DROP TABLE", 2)
		assert.ErrorIs(t, err, entity.ErrInvalidInput)
	})
}

func TestCreateGroupValidation(t *testing.T) {
	c := newTestCore(t)

	_, err := c.CreateGroup(1, "   ")
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = c.CreateGroup(1, "Backend")
	require.NoError(t, err)

	_, err = c.CreateGroup(1, "Another")
	assert.ErrorIs(t, err, entity.ErrAlreadyOwner)
}

func TestResolveHandle(t *testing.T) {
	c := newTestCore(t)

	_, err := c.Register(10, "Alice", "alice")
	require.NoError(t, err)
	require.NoError(t, c.UpsertContact(10, "alice", "+48 123-456-789"))

	t.Run("by username", func(t *testing.T) {
		chatId, err := c.ResolveHandle("@Alice")
		require.NoError(t, err)
		assert.Equal(t, int64(10), chatId)
	})

	t.Run("bare word tried as username", func(t *testing.T) {
		chatId, err := c.ResolveHandle("alice")
		require.NoError(t, err)
		assert.Equal(t, int64(10), chatId)
	})

	t.Run("phone with separators", func(t *testing.T) {
		chatId, err := c.ResolveHandle("+48 123-456-789")
		require.NoError(t, err)
		assert.Equal(t, int64(10), chatId)
	})

	t.Run("lookup format independent of stored format", func(t *testing.T) {
		// Stored with separators, looked up bare and vice versa; both sides
		// reduce to the same canonical number.
		chatId, err := c.ResolveHandle("+48123456789")
		require.NoError(t, err)
		assert.Equal(t, int64(10), chatId)

		require.NoError(t, c.UpsertContact(11, "", "+48600700800"))
		chatId, err = c.ResolveHandle("+48 (600) 700-800")
		require.NoError(t, err)
		assert.Equal(t, int64(11), chatId)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := c.ResolveHandle("@nobody")
		assert.ErrorIs(t, err, entity.ErrNotFound)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := c.ResolveHandle("  ")
		assert.ErrorIs(t, err, entity.ErrInvalidInput)
	})
}

func TestInviteFlow(t *testing.T) {
	c := newTestCore(t)
	const owner, guest = int64(1), int64(2)

	g, err := c.CreateGroup(owner, "Backend")
	require.NoError(t, err)

	code, err := c.IssueInvite(owner, g.GroupId)
	require.NoError(t, err)
	assert.Len(t, code.Code, 8)
	assert.Equal(t, g.GroupId, code.GroupId)

	joined, err := c.RedeemInvite(code.Code, guest)
	require.NoError(t, err)
	assert.True(t, joined.IsMember(guest))

	_, err = c.RedeemInvite(code.Code, 3)
	assert.ErrorIs(t, err, entity.ErrInviteUsed)

	_, err = c.RedeemInvite("bogus", 3)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestDeepLinks(t *testing.T) {
	c := newTestCore(t)
	c.SetBotUsername("team_bot")

	assert.Equal(t, "https://t.me/team_bot?start=G7K2MQ", c.JoinLink("G7K2MQ"))
	assert.Equal(t, "https://t.me/team_bot?start=abc12345", c.InviteLink("abc12345"))
}
