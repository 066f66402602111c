package services

import (
	"context"
	"strconv"
	"testing"

	"github.com/Kyy487/ruangcerita/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), config.RedisConfig{
		Host: mr.Host(),
		Port: mustPort(t, mr),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func mustPort(t *testing.T, mr *miniredis.Miniredis) int {
	t.Helper()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	return port
}

func TestRedisSubstrateGetSetRemove(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	s := NewRedisSubstrate(client, "test:")

	_, ok, err := s.Get(ctx, MessagesKey)
	require.NoError(t, err)
	assert.False(t, ok)

	old, err := s.Set(ctx, MessagesKey, "[]")
	require.NoError(t, err)
	assert.Equal(t, "", old)

	old, err = s.Set(ctx, MessagesKey, `[{"id":1}]`)
	require.NoError(t, err)
	assert.Equal(t, "[]", old)

	stored, err := mr.Get("test:" + MessagesKey)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, stored)

	value, version, err := s.GetVersioned(ctx, MessagesKey)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, value)
	assert.Equal(t, int64(2), version)

	old, err = s.Remove(ctx, MessagesKey)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, old)
	_, ok, err = s.Get(ctx, MessagesKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSubstrateCompareAndSet(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	s := NewRedisSubstrate(client, "test:")

	_, version, err := s.GetVersioned(ctx, MessagesKey)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)

	next, old, err := s.CompareAndSet(ctx, MessagesKey, 0, "[]")
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)
	assert.Equal(t, "", old)

	_, _, err = s.CompareAndSet(ctx, MessagesKey, 0, "stale")
	assert.ErrorIs(t, err, ErrVersionConflict)

	_, err = s.Set(ctx, MessagesKey, "other")
	require.NoError(t, err)
	_, _, err = s.CompareAndSet(ctx, MessagesKey, 1, "stale")
	assert.ErrorIs(t, err, ErrVersionConflict)

	value, _, err := s.GetVersioned(ctx, MessagesKey)
	require.NoError(t, err)
	assert.Equal(t, "other", value)
}

func TestChatStoreOverRedis(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	substrate := NewRedisSubstrate(client, "test:")

	a := newTestStore(t, substrate, nil, PolicyOptimistic)
	b := newTestStore(t, substrate, nil, PolicyOptimistic)
	_, err := a.Append(ctx, "Alya", "dari A")
	require.NoError(t, err)
	_, err = b.Append(ctx, "Budi", "dari B")
	require.NoError(t, err)

	loaded, err := a.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestRedisNotifierRelaysBetweenProcesses(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)

	first, err := NewRedisNotifier(ctx, client, "test:changes", 8)
	require.NoError(t, err)
	defer first.Close()
	second, err := NewRedisNotifier(ctx, client, "test:changes", 8)
	require.NoError(t, err)
	defer second.Close()

	var own, remote recorder
	first.Subscribe(MessagesKey, "proc-a", own.handle)
	second.Subscribe(MessagesKey, "proc-b", remote.handle)

	require.NoError(t, first.Publish(ctx, ChangeEvent{Key: MessagesKey, NewValue: "[]", Origin: "proc-a"}))

	assert.Eventually(t, func() bool { return len(remote.snapshot()) == 1 }, timeout, tick)
	assert.Equal(t, "proc-a", remote.snapshot()[0].Origin)
	assert.Empty(t, own.snapshot())
}
