package cache

import (
	"context"
	"sync"
)

// InMemoryResultCache implements ResultCache with a process-local map.
// Suitable for single-instance deployments and tests.
type InMemoryResultCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
	closed  bool
}

// NewInMemoryResultCache creates an empty in-memory cache.
func NewInMemoryResultCache() *InMemoryResultCache {
	return &InMemoryResultCache{entries: make(map[string][]byte)}
}

func (c *InMemoryResultCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, false, ErrCacheClosed
	}
	v, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (c *InMemoryResultCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	c.entries[key] = append([]byte(nil), value...)
	return nil
}

func (c *InMemoryResultCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	delete(c.entries, key)
	return nil
}

func (c *InMemoryResultCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	clear(c.entries)
	return nil
}

// Len returns the number of cached entries.
func (c *InMemoryResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close drops all entries. Safe to call more than once.
func (c *InMemoryResultCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.entries = nil
	return nil
}

var _ ResultCache = (*InMemoryResultCache)(nil)
