package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grievance/internal/platform/sqlite"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	sid := m.SessionID(ctx)
	require.NotEmpty(t, sid)
	assert.Equal(t, sid, m.SessionID(ctx), "session id is stable")
	assert.Empty(t, m.UserID(ctx))

	require.NoError(t, m.SetUserID(ctx, "u-1"))
	assert.Equal(t, "u-1", m.UserID(ctx))

	require.NoError(t, m.Clear(ctx))
	assert.Empty(t, m.UserID(ctx))
	assert.NotEqual(t, sid, m.SessionID(ctx))
}

func TestRequestIdentityWins(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.SetUserID(context.Background(), "stored"))

	ctx := WithIdentity(context.Background(), Identity{UserID: "from-request"})
	assert.Equal(t, "from-request", m.UserID(ctx))
	assert.Equal(t, m.SessionID(context.Background()), m.SessionID(ctx), "empty field falls back")

	ctx = WithIdentity(ctx, Identity{SessionID: "tab-7"})
	assert.Equal(t, "tab-7", m.SessionID(ctx))
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	db, err := sqlite.Open(ctx, path, sqlite.DefaultOptions())
	require.NoError(t, err)

	s, err := Open(ctx, db)
	require.NoError(t, err)
	sid := s.SessionID(ctx)
	require.NotEmpty(t, sid)
	require.NoError(t, s.SetUserID(ctx, "citizen-42"))
	require.NoError(t, db.Close())

	db, err = sqlite.Open(ctx, path, sqlite.DefaultOptions())
	require.NoError(t, err)
	defer db.Close()

	s, err = Open(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, sid, s.SessionID(ctx))
	assert.Equal(t, "citizen-42", s.UserID(ctx))
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.OpenInMemory(ctx)
	require.NoError(t, err)
	defer db.Close()

	s, err := Open(ctx, db)
	require.NoError(t, err)
	require.NoError(t, s.SetUserID(ctx, "u"))
	require.NoError(t, s.Set(ctx, "locale", "en"))
	sid := s.SessionID(ctx)

	require.NoError(t, s.Clear(ctx))
	assert.Empty(t, s.UserID(ctx))
	assert.NotEqual(t, sid, s.SessionID(ctx))

	_, ok, err := s.Get(ctx, "locale")
	require.NoError(t, err)
	assert.False(t, ok)

	stored, ok, err := s.Get(ctx, keySessionID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, s.SessionID(ctx), stored)
}

func TestStore_Check(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.OpenInMemory(ctx)
	require.NoError(t, err)

	s, err := Open(ctx, db)
	require.NoError(t, err)
	assert.NoError(t, s.Check(ctx))

	require.NoError(t, db.Close())
	assert.Error(t, s.Check(ctx))
}

var (
	_ Provider = (*Memory)(nil)
	_ Provider = (*Store)(nil)
)
