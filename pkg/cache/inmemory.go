// Package cache is the process local TTL cache behind market data lookups
// and Telegram conversation state.
package cache

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

type Cache interface {
	Set(key string, value interface{}, ttl time.Duration)
	Get(key string) (interface{}, bool)
	Delete(key string)
	// Do returns the value under key, running load when it is missing.
	// Concurrent misses on the same key share one load, and only
	// successful results are stored.
	Do(ctx context.Context, key string, ttl time.Duration, load func(context.Context) (interface{}, error)) (value interface{}, hit bool, err error)
}

type memoryCache struct {
	items    *gocache.Cache
	inflight singleflight.Group
}

// NewCache returns an in-memory Cache. Items set with ttl 0 use
// defaultTTL; expired items are swept every cleanupInterval.
func NewCache(defaultTTL, cleanupInterval time.Duration) Cache {
	return &memoryCache{items: gocache.New(defaultTTL, cleanupInterval)}
}

func (c *memoryCache) Set(key string, value interface{}, ttl time.Duration) {
	c.items.Set(key, value, ttl)
}

func (c *memoryCache) Get(key string) (interface{}, bool) {
	return c.items.Get(key)
}

func (c *memoryCache) Delete(key string) {
	c.items.Delete(key)
}

func (c *memoryCache) Do(ctx context.Context, key string, ttl time.Duration, load func(context.Context) (interface{}, error)) (interface{}, bool, error) {
	if v, ok := c.items.Get(key); ok {
		return v, true, nil
	}

	v, err, _ := c.inflight.Do(key, func() (interface{}, error) {
		// a concurrent load may have finished between Get and Do
		if v, ok := c.items.Get(key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.items.Set(key, v, ttl)
		return v, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v, false, nil
}

// GetTyped reads key from c and asserts it to T.
// A value stored under the key with another type is reported as a miss.
func GetTyped[T any](c Cache, key string) (T, bool) {
	var zero T
	val, found := c.Get(key)
	if !found {
		return zero, false
	}
	typedVal, ok := val.(T)
	if !ok {
		return zero, false
	}
	return typedVal, true
}

// Load is Do for a value of type T.
func Load[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, bool, error) {
	var zero T
	val, hit, err := c.Do(ctx, key, ttl, func(ctx context.Context) (interface{}, error) {
		return load(ctx)
	})
	if err != nil {
		return zero, false, err
	}
	typedVal, ok := val.(T)
	if !ok {
		return zero, false, fmt.Errorf("cache: value under %q is %T", key, val)
	}
	return typedVal, hit, nil
}
