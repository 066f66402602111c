package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Kyy487/ruangcerita/logger"
	"github.com/go-redis/redis/v8"
)

// RedisNotifier relays ChangeEvents between processes over a Redis pub/sub
// channel. Every process, the publisher included, receives each event and
// hands it to its local Bus, which filters out same-origin subscribers.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	bus     *Bus
	pubsub  *redis.PubSub
	wg      sync.WaitGroup
}

func NewRedisNotifier(ctx context.Context, client *redis.Client, channel string, buffer int) (*RedisNotifier, error) {
	pubsub := client.Subscribe(ctx, channel)
	// Wait for the subscription confirmation so no publish after return is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	n := &RedisNotifier{
		client:  client,
		channel: channel,
		bus:     NewBus(buffer),
		pubsub:  pubsub,
	}
	n.wg.Add(1)
	go n.relay()
	return n, nil
}

func (n *RedisNotifier) relay() {
	defer n.wg.Done()
	for msg := range n.pubsub.Channel() {
		var ev ChangeEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			logger.Warn().Err(err).Str("channel", n.channel).Msg("undecodable change event")
			continue
		}
		n.bus.dispatch(ev)
	}
}

func (n *RedisNotifier) Publish(ctx context.Context, ev ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	if err = n.client.Publish(ctx, n.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

func (n *RedisNotifier) Subscribe(key, origin string, handler Handler) *Subscription {
	return n.bus.Subscribe(key, origin, handler)
}

func (n *RedisNotifier) Close() error {
	err := n.pubsub.Close()
	n.wg.Wait()
	_ = n.bus.Close()
	return err
}
