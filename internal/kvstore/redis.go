package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tripdesk/backend/internal/domain"
)

// redisStore is the Redis implementation of Store.
type redisStore struct {
	client *redis.Client
}

// NewRedis constructs a Store backed by the provided Redis client. The client
// lifecycle (ping, close) belongs to the caller.
func NewRedis(client *redis.Client) Store {
	return &redisStore{client: client}
}

// Put stores value under key with the given ttl.
func (s *redisStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("kvstore.Store.Put: %w: ttl must be positive", domain.ErrValidation)
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("kvstore.Store.Put: %w", err)
	}
	return nil
}

// Get returns the value stored under key, translating the Redis miss
// sentinel into domain.ErrNotFound.
func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("kvstore.Store.Get: %w", domain.ErrNotFound)
		}
		return "", fmt.Errorf("kvstore.Store.Get: %w", err)
	}
	return val, nil
}

// Delete removes key. Absent keys are ignored.
func (s *redisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("kvstore.Store.Delete: %w", err)
	}
	return nil
}
