package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupCache_MarkAndSeen(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewDedupCache(client)
	ctx := context.Background()

	key := "transfers:0:42"

	// Seen before mark => false
	seen, err := cache.Seen(ctx, key)
	assert.NoError(t, err)
	assert.False(t, seen)

	err = cache.Mark(ctx, key, 24*time.Hour)
	require.NoError(t, err)

	seen, err = cache.Seen(ctx, key)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestDedupCache_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewDedupCache(client)
	ctx := context.Background()

	key := "transfers:1:7"

	err := cache.Mark(ctx, key, 1*time.Second)
	require.NoError(t, err)

	// Fast-forward time in miniredis
	s.FastForward(2 * time.Second)

	seen, err := cache.Seen(ctx, key)
	assert.NoError(t, err)
	assert.False(t, seen, "expired key should no longer count as seen")
}

func TestDedupCache_KeysAreIsolatedByPartitionAndOffset(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewDedupCache(client)
	ctx := context.Background()

	err := cache.Mark(ctx, "transfers:0:1", 1*time.Hour)
	require.NoError(t, err)

	seen, err := cache.Seen(ctx, "transfers:0:2")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = cache.Seen(ctx, "transfers:1:1")
	require.NoError(t, err)
	assert.False(t, seen)
}
