package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bimakw/swap-router/internal/domain/entities"
)

// Cache stores pool list snapshots, e.g. the result of a factory discovery
type Cache interface {
	GetPools(ctx context.Context, key string) ([]entities.Pool, error)
	SetPools(ctx context.Context, key string, pools []entities.Pool, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisCache implements Cache using Redis
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache client
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetPools retrieves a cached pool list. A miss returns nil, nil.
func (c *RedisCache) GetPools(ctx context.Context, key string) ([]entities.Pool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var pools []entities.Pool
	if err := json.Unmarshal(data, &pools); err != nil {
		return nil, fmt.Errorf("failed to decode cached pools %s: %w", key, err)
	}

	return pools, nil
}

// SetPools caches a pool list with TTL
func (c *RedisCache) SetPools(ctx context.Context, key string, pools []entities.Pool, ttl time.Duration) error {
	data, err := json.Marshal(pools)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete removes a key from cache
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// PoolsCacheKey generates the cache key of a factory's discovered pools
func PoolsCacheKey(factory string) string {
	return fmt.Sprintf("pools:%s", strings.ToLower(factory))
}
