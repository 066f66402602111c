package services

import (
	"context"
	"fmt"

	"github.com/Kyy487/ruangcerita/config"
	"github.com/go-redis/redis/v8"
)

// NewRedisClient connects to the configured Redis and verifies the connection.
func NewRedisClient(ctx context.Context, redisConfig config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", redisConfig.Host, redisConfig.Port),
		Password: redisConfig.Password,
		DB:       redisConfig.DB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
