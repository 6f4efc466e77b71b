package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/bimakw/swap-router/internal/domain/entities"
)

// InMemoryCache implements Cache in process (for development or when Redis is not configured)
type InMemoryCache struct {
	store *gocache.Cache
}

// NewInMemoryCache creates a new in-memory cache. Expired entries are purged every cleanupInterval.
func NewInMemoryCache(cleanupInterval time.Duration) *InMemoryCache {
	return &InMemoryCache{
		store: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

func (c *InMemoryCache) GetPools(ctx context.Context, key string) ([]entities.Pool, error) {
	v, found := c.store.Get(key)
	if !found {
		return nil, nil
	}
	pools := v.([]entities.Pool)
	out := make([]entities.Pool, len(pools))
	copy(out, pools)
	return out, nil
}

func (c *InMemoryCache) SetPools(ctx context.Context, key string, pools []entities.Pool, ttl time.Duration) error {
	stored := make([]entities.Pool, len(pools))
	copy(stored, pools)
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.store.Set(key, stored, ttl)
	return nil
}

func (c *InMemoryCache) Delete(ctx context.Context, key string) error {
	c.store.Delete(key)
	return nil
}
