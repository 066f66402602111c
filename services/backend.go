package services

import (
	"context"
	"fmt"

	"github.com/Kyy487/ruangcerita/config"
	"github.com/Kyy487/ruangcerita/db"
	"github.com/Kyy487/ruangcerita/logger"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Backend is everything one server process needs: the shared substrate and
// notifier plus the process's own store context.
type Backend struct {
	Substrate Substrate
	Notifier  Notifier
	Store     *ChatStore
	Session   *UserSession
	Admin     *AdminAuthenticator
	Views     *WSConnManager

	watch   *Subscription
	redis   *redis.Client
	closers []func() error
}

// NewBackend wires the drivers selected in conf.
func NewBackend(ctx context.Context, conf *config.ConfigSchema) (*Backend, error) {
	b := &Backend{Views: NewWSConnManager()}
	ok := false
	defer func() {
		if !ok {
			_ = b.Close()
		}
	}()

	needRedis := conf.Storage.Driver == "redis" || conf.Notifier.Driver == "redis"
	if needRedis {
		client, err := NewRedisClient(ctx, conf.Redis)
		if err != nil {
			return nil, err
		}
		b.redis = client
		b.closers = append(b.closers, client.Close)
	}

	switch conf.Storage.Driver {
	case "memory":
		b.Substrate = NewMemorySubstrate()
	case "redis":
		b.Substrate = NewRedisSubstrate(b.redis, "ruangcerita:")
	case "sql":
		orm, err := db.ConnectDB(conf)
		if err != nil {
			return nil, err
		}
		b.Substrate = NewSQLSubstrate(orm)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", conf.Storage.Driver)
	}

	switch conf.Notifier.Driver {
	case "local":
		b.Notifier = NewBus(conf.Notifier.Buffer)
	case "redis":
		n, err := NewRedisNotifier(ctx, b.redis, conf.Redis.Channel, conf.Notifier.Buffer)
		if err != nil {
			return nil, err
		}
		b.Notifier = n
	case "amqp":
		n, err := NewAMQPNotifier(conf.Notifier.AMQPURL, conf.Notifier.Exchange, conf.Notifier.Buffer)
		if err != nil {
			return nil, err
		}
		b.Notifier = n
	default:
		return nil, fmt.Errorf("unknown notifier driver %q", conf.Notifier.Driver)
	}
	// Closed before the redis client, which is first in closers.
	b.closers = append([]func() error{b.Notifier.Close}, b.closers...)

	origin := uuid.NewString()
	store, err := NewChatStore(b.Substrate, b.Notifier, StoreOptions{
		Origin:     origin,
		Policy:     WritePolicy(conf.Storage.Policy),
		MaxRetries: conf.Storage.MaxRetries,
	})
	if err != nil {
		return nil, err
	}
	if err = store.Reload(ctx); err != nil {
		return nil, err
	}
	b.Store = store
	b.watch = store.Watch(nil)
	b.Session = NewUserSession(b.Substrate, b.Notifier, origin)
	b.Admin = NewAdminAuthenticator(conf.Admin.Name, conf.Admin.PasswordHash, conf.Admin.JWTSecret, conf.Admin.TokenTTL)

	logger.Info().
		Str("origin", origin).
		Str("storage", conf.Storage.Driver).
		Str("policy", conf.Storage.Policy).
		Str("notifier", conf.Notifier.Driver).
		Int("messages", len(store.Messages())).
		Msg("chat backend ready")
	ok = true
	return b, nil
}

func (b *Backend) Close() error {
	if b.watch != nil {
		b.watch.Close()
	}
	var firstErr error
	for _, closeFn := range b.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
