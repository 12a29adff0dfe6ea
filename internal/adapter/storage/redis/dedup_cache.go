package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DedupCache implements ports.DedupCache using Redis. It shadows the
// durable processed_keys table so that most replays never reach the
// database. Losing the cache is safe, the table is still checked.
type DedupCache struct {
	client *goredis.Client
	prefix string
}

// NewDedupCache creates a new Redis-backed dedup cache.
func NewDedupCache(client *goredis.Client) *DedupCache {
	return &DedupCache{
		client: client,
		prefix: "dedup:",
	}
}

// Seen reports whether the idempotency key was marked settled.
// Returns false, nil when the key is absent.
func (c *DedupCache) Seen(ctx context.Context, key string) (bool, error) {
	err := c.client.Get(ctx, c.prefix+key).Err()
	if err != nil {
		if err == goredis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("redis dedup get: %w", err)
	}
	return true, nil
}

// Mark records the key as settled with a TTL.
func (c *DedupCache) Mark(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis dedup set: %w", err)
	}
	return nil
}
