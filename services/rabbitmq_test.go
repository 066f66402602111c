package services

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "storage.chat_messages", RoutingKey(MessagesKey))
	assert.Equal(t, "storage.user_chat_name:abc", RoutingKey(DisplayNameKeyFor("abc")))
}

func TestAMQPNotifierRelay(t *testing.T) {
	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		t.Skip("RABBITMQ_URL not set")
	}
	ctx := context.Background()

	first, err := NewAMQPNotifier(url, "ruangcerita_test", 8)
	require.NoError(t, err)
	defer first.Close()
	second, err := NewAMQPNotifier(url, "ruangcerita_test", 8)
	require.NoError(t, err)
	defer second.Close()

	var rec recorder
	second.Subscribe(MessagesKey, "proc-b", rec.handle)
	require.NoError(t, first.Publish(ctx, ChangeEvent{Key: MessagesKey, NewValue: "[]", Origin: "proc-a"}))

	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, timeout*5, tick)
}
