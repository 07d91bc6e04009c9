// Package cache provides a bounded in-process cache for computed retrieval
// results: LRU eviction, per-entry expiry checked at read time, and
// singleflight coalescing so concurrent misses for the same key compute once.
package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a generic LRU+TTL cache. The zero value is not usable; call New.
type Cache[V any] struct {
	lru   *lru.Cache[string, entry[V]]
	ttl   time.Duration
	group singleflight.Group

	// now is swappable in tests.
	now func() time.Time
}

// New creates a cache holding at most maxEntries values, each valid for ttl
// after insertion.
func New[V any](maxEntries int, ttl time.Duration) (*Cache[V], error) {
	l, err := lru.New[string, entry[V]](maxEntries)
	if err != nil {
		return nil, err
	}
	return &Cache[V]{lru: l, ttl: ttl, now: time.Now}, nil
}

// Get returns the cached value for key. An expired entry is a miss and is
// evicted on the spot.
func (c *Cache[V]) Get(key string) (V, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		c.lru.Remove(key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put stores a value under key with the configured TTL.
func (c *Cache[V]) Put(key string, value V) {
	c.lru.Add(key, entry[V]{value: value, expiresAt: c.now().Add(c.ttl)})
}

// Invalidate removes a key.
func (c *Cache[V]) Invalidate(key string) {
	c.lru.Remove(key)
}

// Len returns the number of live entries, expired ones included until read.
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}

// GetOrCompute returns the cached value or computes and stores it. Concurrent
// callers with the same key share a single compute call. Compute errors are
// returned to every waiter and nothing is cached.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (V, error)) (V, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Another waiter may have populated the entry while we queued.
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return v.(V), false, nil
}
