package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry struct {
	value    any
	storedAt time.Time
}

// TTL is a keyed cache whose entries expire ttl after they were stored. Callers
// pass the current time, so expiry is deterministic under test.
type TTL struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]entry
	group singleflight.Group
}

// NewTTL creates an empty cache with the given time to live.
func NewTTL(ttl time.Duration) *TTL {
	return &TTL{
		ttl:   ttl,
		items: make(map[string]entry),
	}
}

// Get returns the value stored under key if it is still fresh at now.
func (c *TTL) Get(key string, now time.Time) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || now.Sub(e.storedAt) >= c.ttl {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key as of now.
func (c *TTL) Set(key string, value any, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry{value: value, storedAt: now}
}

// Invalidate removes one key.
func (c *TTL) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Purge removes every entry.
func (c *TTL) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]entry)
}

// Size returns the number of stored entries, expired or not.
func (c *TTL) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Load returns the fresh value under key, or calls fetch and stores its result.
// Concurrent loads of the same key share a single fetch. Errors are not cached.
func Load[T any](ctx context.Context, c *TTL, key string, now time.Time, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key, now); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, value, now)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("cache load %s: %w", key, err)
	}

	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache load %s: unexpected value type %T", key, v)
	}
	return typed, nil
}
