// Package cache memoizes rendered report results. Entries never expire: the
// engine is the source of truth and a stale result is acceptable until a
// caller bypasses or clears the cache.
package cache

import (
	"context"
	"errors"
)

// ErrCacheClosed is returned by operations on a closed cache.
var ErrCacheClosed = errors.New("result cache is closed")

// ResultCache stores serialized report results by key.
type ResultCache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key without expiration.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// Clear removes every entry owned by this cache.
	Clear(ctx context.Context) error
	// Close releases resources held by the cache.
	Close() error
}
