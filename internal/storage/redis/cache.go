package redisapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ansel/internal/storage"

	"github.com/redis/go-redis/v9"
)

// Cache stores serialized galleries in Redis. Every entry is written with
// the default lifetime as its TTL, so the remaining TTL tells its age.
type Cache struct {
	client   *Client
	lifetime time.Duration
}

func NewCache(client *Client, defaultLifetime time.Duration) *Cache {
	return &Cache{
		client:   client,
		lifetime: defaultLifetime,
	}
}

func (c *Cache) Get(ctx context.Context, key string, lifetime time.Duration) ([]byte, error) {
	const op = "storage.redis.Cache.Get"

	pipe := c.client.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrCacheMiss
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if lifetime > 0 && c.lifetime > 0 {
		if ttl := ttlCmd.Val(); ttl >= 0 && c.lifetime-ttl > lifetime {
			return nil, storage.ErrCacheMiss
		}
	}

	data, err := getCmd.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return data, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	const op = "storage.redis.Cache.Set"

	if err := c.client.Set(ctx, key, value, c.lifetime).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *Cache) Expire(ctx context.Context, key string) error {
	const op = "storage.redis.Cache.Expire"

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
