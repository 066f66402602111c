package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Kyy487/ruangcerita/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func newTestSQLSubstrate(t *testing.T) *SQLSubstrate {
	t.Helper()
	orm, err := db.Open(sqlite.Open(filepath.Join(t.TempDir(), "kv.db")))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := orm.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewSQLSubstrate(orm)
}

func TestSQLSubstrateGetSetRemove(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLSubstrate(t)

	_, ok, err := s.Get(ctx, DisplayNameKey)
	require.NoError(t, err)
	assert.False(t, ok)

	old, err := s.Set(ctx, DisplayNameKey, "Alya")
	require.NoError(t, err)
	assert.Equal(t, "", old)
	old, err = s.Set(ctx, DisplayNameKey, "Budi")
	require.NoError(t, err)
	assert.Equal(t, "Alya", old)

	value, ok, err := s.Get(ctx, DisplayNameKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Budi", value)

	_, version, err := s.GetVersioned(ctx, DisplayNameKey)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	old, err = s.Remove(ctx, DisplayNameKey)
	require.NoError(t, err)
	assert.Equal(t, "Budi", old)
	_, ok, err = s.Get(ctx, DisplayNameKey)
	require.NoError(t, err)
	assert.False(t, ok)

	old, err = s.Remove(ctx, DisplayNameKey)
	require.NoError(t, err)
	assert.Equal(t, "", old)
}

func TestSQLSubstrateCompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLSubstrate(t)

	next, _, err := s.CompareAndSet(ctx, MessagesKey, 0, "[]")
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)

	_, _, err = s.CompareAndSet(ctx, MessagesKey, 0, "stale")
	assert.ErrorIs(t, err, ErrVersionConflict)

	next, old, err := s.CompareAndSet(ctx, MessagesKey, 1, `[{"id":1}]`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next)
	assert.Equal(t, "[]", old)

	_, _, err = s.CompareAndSet(ctx, MessagesKey, 1, "stale")
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestChatStoreOverSQL(t *testing.T) {
	ctx := context.Background()
	substrate := newTestSQLSubstrate(t)

	store := newTestStore(t, substrate, nil, PolicyOptimistic)
	msg, err := store.Append(ctx, "Alya", "Saya lelah")
	require.NoError(t, err)
	_, err = store.Reply(ctx, msg.ID, "Ceritakan lebih lanjut", "Admin")
	require.NoError(t, err)

	fresh := newTestStore(t, substrate, nil, PolicyLastWriteWins)
	assert.Equal(t, store.Messages(), fresh.Messages())
	assert.Equal(t, 0, UnreadCount(fresh.Messages()))
}
