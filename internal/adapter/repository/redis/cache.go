package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// generationKey is the single counter Redis key bumped on every ledger
// post; balance cache keys embed its value so a post invalidates every
// previously cached balance without an explicit delete (spec §4.7).
const generationKey = "cache:ledger:generation"

// Cache implements usecase.Cache using Redis.
type Cache struct {
	client *redis.Client
	prefix string
}

// NewCache creates a new Cache.
func NewCache(client *redis.Client) *Cache {
	return &Cache{
		client: client,
		prefix: "cache:",
	}
}

// Get retrieves a value by key. A missing key returns (nil, nil).
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

// Set stores a value with TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

// IncrGeneration atomically bumps the ledger generation counter and
// returns the new value.
func (c *Cache) IncrGeneration(ctx context.Context) (int64, error) {
	return c.client.Incr(ctx, generationKey).Result()
}

// Generation returns the current generation without mutating it. An
// unset counter (fresh deployment) reads as generation 0.
func (c *Cache) Generation(ctx context.Context) (int64, error) {
	val, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return val, err
}
