package redisclient

import (
	"context"
	"fmt"

	"airshark/internal/config"

	"github.com/redis/go-redis/v9"
)

// New creates a Redis client from configuration.
func New(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping checks connectivity and returns the server reply.
func Ping(ctx context.Context, rdb *redis.Client) (string, error) {
	res, err := rdb.Ping(ctx).Result()
	if err != nil {
		return "", fmt.Errorf("redis ping %s: %w", rdb.Options().Addr, err)
	}
	return res, nil
}
