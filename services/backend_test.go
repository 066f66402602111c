package services

import (
	"context"
	"testing"

	"github.com/Kyy487/ruangcerita/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisBackedConfig(t *testing.T, mr *miniredis.Miniredis) *config.ConfigSchema {
	t.Helper()
	conf := config.Default()
	conf.Storage.Driver = "redis"
	conf.Storage.Policy = string(PolicyOptimistic)
	conf.Notifier.Driver = "redis"
	conf.Redis.Host = mr.Host()
	conf.Redis.Port = mustPort(t, mr)
	conf.Redis.Channel = "test:changes"
	return conf
}

func TestBackendsShareRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	first, err := NewBackend(ctx, redisBackedConfig(t, mr))
	require.NoError(t, err)
	defer first.Close()
	second, err := NewBackend(ctx, redisBackedConfig(t, mr))
	require.NoError(t, err)
	defer second.Close()

	assert.NotEqual(t, first.Store.Origin(), second.Store.Origin())
	assert.Equal(t, PolicyOptimistic, first.Store.Policy())

	_, err = first.Session.SetDisplayName(ctx, "s1", "Alya")
	require.NoError(t, err)
	msg, err := second.Session.Submit(ctx, second.Store, "s1", "Saya lelah")
	require.NoError(t, err)
	require.NotNil(t, msg)

	assert.Eventually(t, func() bool { return len(first.Store.Messages()) == 1 }, timeout, tick)
	ok, err := first.Store.Reply(ctx, msg.ID, "Ceritakan lebih lanjut", "Admin")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Eventually(t, func() bool {
		msgs := second.Store.Messages()
		return len(msgs) == 1 && msgs[0].Replied()
	}, timeout, tick)
}

func TestBackendInMemoryDefaults(t *testing.T) {
	b, err := NewBackend(context.Background(), config.Default())
	require.NoError(t, err)
	defer b.Close()

	_, ok := b.Substrate.(*MemorySubstrate)
	assert.True(t, ok)
	_, ok = b.Notifier.(*Bus)
	assert.True(t, ok)
	assert.Equal(t, PolicyLastWriteWins, b.Store.Policy())
	assert.Empty(t, b.Store.Messages())
}

func TestBackendFailsWithoutRedis(t *testing.T) {
	conf := config.Default()
	conf.Storage.Driver = "redis"
	conf.Redis.Host = "127.0.0.1"
	conf.Redis.Port = 1
	_, err := NewBackend(context.Background(), conf)
	assert.Error(t, err)
}
