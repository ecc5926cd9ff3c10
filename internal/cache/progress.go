package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/solution-builder/internal/reconciler"
)

const defaultPrefix = "solution-builder:save-progress:"

// RedisProgressStore implements reconciler.ProgressStore on Redis.
// Entries expire after ttl so abandoned saves do not accumulate.
type RedisProgressStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// Option configures a RedisProgressStore
type Option func(*RedisProgressStore)

// WithPrefix overrides the key prefix
func WithPrefix(prefix string) Option {
	return func(s *RedisProgressStore) {
		s.prefix = prefix
	}
}

// NewRedisProgressStore creates a progress store over an existing client
func NewRedisProgressStore(client redis.UniversalClient, ttl time.Duration, opts ...Option) *RedisProgressStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	s := &RedisProgressStore{
		client: client,
		prefix: defaultPrefix,
		ttl:    ttl,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewClient creates a Redis client and verifies connectivity
func NewClient(ctx context.Context, address, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// Get returns the progress for key, or nil if there is none
func (s *RedisProgressStore) Get(ctx context.Context, key string) (*reconciler.Progress, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get save progress: %w", err)
	}

	var p reconciler.Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal save progress: %w", err)
	}

	return &p, nil
}

// Put stores the progress for key and refreshes its expiry
func (s *RedisProgressStore) Put(ctx context.Context, key string, p *reconciler.Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal save progress: %w", err)
	}

	if err := s.client.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to put save progress: %w", err)
	}

	return nil
}

// Delete removes the progress for key
func (s *RedisProgressStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete save progress: %w", err)
	}
	return nil
}

func (s *RedisProgressStore) key(k string) string {
	return s.prefix + k
}

var _ reconciler.ProgressStore = (*RedisProgressStore)(nil)
