package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

// RedisSubstrate stores each key as a Redis string next to a "<key>:version"
// counter that every write increments.
type RedisSubstrate struct {
	client *redis.Client
	prefix string
}

func NewRedisSubstrate(client *redis.Client, prefix string) *RedisSubstrate {
	return &RedisSubstrate{client: client, prefix: prefix}
}

func (s *RedisSubstrate) dataKey(key string) string {
	return s.prefix + key
}

func (s *RedisSubstrate) versionKey(key string) string {
	return s.prefix + key + ":version"
}

func (s *RedisSubstrate) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.dataKey(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *RedisSubstrate) Set(ctx context.Context, key, value string) (string, error) {
	var getSet *redis.StringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		getSet = pipe.GetSet(ctx, s.dataKey(key), value)
		pipe.Incr(ctx, s.versionKey(key))
		return nil
	})
	if err != nil && err != redis.Nil {
		return "", fmt.Errorf("redis set %s: %w", key, err)
	}
	old, _ := getSet.Result()
	return old, nil
}

func (s *RedisSubstrate) Remove(ctx context.Context, key string) (string, error) {
	var get *redis.StringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.Get(ctx, s.dataKey(key))
		pipe.Del(ctx, s.dataKey(key))
		pipe.Incr(ctx, s.versionKey(key))
		return nil
	})
	if err != nil && err != redis.Nil {
		return "", fmt.Errorf("redis remove %s: %w", key, err)
	}
	old, _ := get.Result()
	return old, nil
}

func (s *RedisSubstrate) GetVersioned(ctx context.Context, key string) (string, int64, error) {
	values, err := s.client.MGet(ctx, s.dataKey(key), s.versionKey(key)).Result()
	if err != nil {
		return "", 0, fmt.Errorf("redis mget %s: %w", key, err)
	}
	value, _ := values[0].(string)
	var version int64
	if raw, ok := values[1].(string); ok {
		version, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return "", 0, fmt.Errorf("redis version of %s: %w", key, err)
		}
	}
	return value, version, nil
}

func (s *RedisSubstrate) CompareAndSet(ctx context.Context, key string, version int64, value string) (int64, string, error) {
	dataKey, versionKey := s.dataKey(key), s.versionKey(key)

	var old string
	var incr *redis.IntCmd
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != version {
			return ErrVersionConflict
		}
		old, err = tx.Get(ctx, dataKey).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, dataKey, value, 0)
			incr = pipe.Incr(ctx, versionKey)
			return nil
		})
		return err
	}, dataKey, versionKey)

	switch {
	case err == nil:
		return incr.Val(), old, nil
	case errors.Is(err, ErrVersionConflict), errors.Is(err, redis.TxFailedErr):
		return 0, "", ErrVersionConflict
	default:
		return 0, "", fmt.Errorf("redis compare-and-set %s: %w", key, err)
	}
}
