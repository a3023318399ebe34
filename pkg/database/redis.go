package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/config"
)

// NewRedisClient creates a Redis client used for the judge cache and the
// Redis retrieval backend. Returns nil if Redis is not configured (host is empty).
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	host := config.ResolveHostForDocker(cfg.Host)
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		Protocol: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s:%d: %w", host, cfg.Port, err)
	}

	return client, nil
}
