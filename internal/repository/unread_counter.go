package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// UnreadCounter tracks how many notifications a principal has not read yet.
type UnreadCounter interface {
	Increment(ctx context.Context, principalID string) (int64, error)
	Get(ctx context.Context, principalID string) (int64, error)
	Reset(ctx context.Context, principalID string) error
}

type redisUnreadCounter struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewUnreadCounter returns a Redis-backed counter.
func NewUnreadCounter(client redis.UniversalClient, keyPrefix string) UnreadCounter {
	return &redisUnreadCounter{client: client, keyPrefix: keyPrefix}
}

func (c *redisUnreadCounter) Increment(ctx context.Context, principalID string) (int64, error) {
	n, err := c.client.Incr(ctx, c.key(principalID)).Result()
	if err != nil {
		return 0, fmt.Errorf("unread: increment: %w", err)
	}
	return n, nil
}

func (c *redisUnreadCounter) Get(ctx context.Context, principalID string) (int64, error) {
	n, err := c.client.Get(ctx, c.key(principalID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("unread: get: %w", err)
	}
	return n, nil
}

func (c *redisUnreadCounter) Reset(ctx context.Context, principalID string) error {
	if err := c.client.Del(ctx, c.key(principalID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("unread: reset: %w", err)
	}
	return nil
}

func (c *redisUnreadCounter) key(principalID string) string {
	return c.keyPrefix + "unread:" + principalID
}
