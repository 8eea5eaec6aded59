// Package cache provides the TTL key/value tiers the catalog service reads through.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"lineacaptura/pkg/platform/sentinel"
)

// ErrMiss is returned for absent or expired keys.
var ErrMiss = sentinel.ErrNotFound

type entry struct {
	value     []byte
	expiresAt time.Time
}

// InMemoryCache is a process-local cache. Values are stored as encoded bytes
// so every reader decodes its own copy.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// Option configures an InMemoryCache.
type Option func(*InMemoryCache)

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(c *InMemoryCache) { c.now = now }
}

func NewInMemory(opts ...Option) *InMemoryCache {
	c := &InMemoryCache{entries: make(map[string]entry), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *InMemoryCache) Driver() string { return "memory" }

func (c *InMemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, ErrMiss
	}
	return e.value, nil
}

func (c *InMemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *InMemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.Get(ctx, key)
	return err == nil, nil
}

func (c *InMemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *InMemoryCache) DeletePrefix(_ context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			n++
		}
	}
	return n, nil
}
