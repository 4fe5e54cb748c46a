package repository

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/bjarke-xyz/fmh/internal/config"
	"github.com/bjarke-xyz/fmh/internal/core"
	"github.com/bjarke-xyz/fmh/metrics"
	gocache "github.com/patrickmn/go-cache"
)

// LayeredCache answers from process memory first and falls back to the
// sqlite cache table. Values are stored as JSON.
type LayeredCache struct {
	memory *gocache.Cache
	store  *cacheStore
}

var _ core.Cache = (*LayeredCache)(nil)

func NewLayeredCache(cfg *config.Config) *LayeredCache {
	return &LayeredCache{
		memory: gocache.New(gocache.NoExpiration, 10*time.Minute),
		store:  &cacheStore{cfg: cfg, now: time.Now},
	}
}

func (c *LayeredCache) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.memory.Set(key, b, ttl)
	return c.store.set(ctx, key, b, ttl)
}

// Fetch decodes the value cached under key into target. A table hit is
// copied into memory for the rest of its lifetime.
func (c *LayeredCache) Fetch(ctx context.Context, key string, target any) (bool, error) {
	if v, found := c.memory.Get(key); found {
		metrics.CacheLookupInc("memory", "hit")
		return true, json.Unmarshal(v.([]byte), target)
	}
	b, ttl, found, err := c.store.get(ctx, key)
	if err != nil {
		return false, err
	}
	if !found {
		metrics.CacheLookupInc("sqlite", "miss")
		return false, nil
	}
	metrics.CacheLookupInc("sqlite", "hit")
	c.memory.Set(key, b, ttl)
	return true, json.Unmarshal(b, target)
}

func (c *LayeredCache) Invalidate(ctx context.Context, prefix string) error {
	for key := range c.memory.Items() {
		if strings.HasPrefix(key, prefix) {
			c.memory.Delete(key)
		}
	}
	return c.store.deletePrefix(ctx, prefix)
}

func (c *LayeredCache) Purge(ctx context.Context) error {
	c.memory.DeleteExpired()
	n, err := c.store.deleteExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("purged %v expired cache entries", n)
	}
	return nil
}

// Remember returns the value cached under key, or loads, caches and returns
// it. Cache failures are logged and never fail the caller.
func Remember[T any](ctx context.Context, cache core.Cache, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	var v T
	found, err := cache.Fetch(ctx, key, &v)
	if err != nil {
		log.Printf("error reading %v from cache: %v", key, err)
	}
	if found && err == nil {
		return v, nil
	}
	v, err = load(ctx)
	if err != nil {
		return v, err
	}
	if err := cache.Put(ctx, key, v, ttl); err != nil {
		log.Printf("error caching %v: %v", key, err)
	}
	return v, nil
}
