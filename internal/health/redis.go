package health

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisChecker probes Redis with PING
type RedisChecker struct {
	BaseChecker
	client redis.UniversalClient
}

// NewRedisChecker creates a checker over an existing client
func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{
		BaseChecker: BaseChecker{name: "redis"},
		client:      client,
	}
}

// Check verifies Redis connectivity
func (c *RedisChecker) Check(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}
