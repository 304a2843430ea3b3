package transient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"saldo/internal/benefit/models"
	"saldo/internal/sentinel"
)

const keyPrefix = "saldo:transient:"

// RedisCache stores payloads as JSON with a server-side TTL.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedis creates a Redis-backed cache with ttl (DefaultTTL when non-positive).
func NewRedis(client redis.Cmdable, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Put stores payload under key with the configured TTL.
func (c *RedisCache) Put(ctx context.Context, key models.Key, payload models.Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := c.client.Set(ctx, redisKey(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get returns the live payload for key.
func (c *RedisCache) Get(ctx context.Context, key models.Key) (models.Payload, error) {
	data, err := c.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Payload{}, fmt.Errorf("transient entry: %w", sentinel.ErrNotFound)
		}
		return models.Payload{}, fmt.Errorf("redis get: %w", err)
	}
	var payload models.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return models.Payload{}, fmt.Errorf("unmarshal payload: %w", err)
	}
	return payload, nil
}

func redisKey(key models.Key) string {
	return keyPrefix + key.String()
}
