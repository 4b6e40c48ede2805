package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/salesinsight/backend/internal/infrastructure/config"
)

// unreachableRedis points at a port nothing listens on.
var unreachableRedis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

func TestResultCacheFactory_Memory(t *testing.T) {
	f := NewResultCacheFactory(unreachableRedis, config.CacheConfig{Backend: "memory"})

	c, err := f.CreateCache()
	require.NoError(t, err)
	defer c.Close()

	assert.IsType(t, &InMemoryResultCache{}, c)
}

func TestResultCacheFactory_RedisFallback(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := NewResultCacheFactory(unreachableRedis, config.CacheConfig{Backend: "redis"},
		WithLogger(zap.New(core)),
		WithDialTimeout(200*time.Millisecond),
	)

	c, err := f.CreateCache()
	require.NoError(t, err)
	defer c.Close()

	assert.IsType(t, &InMemoryResultCache{}, c)
	assert.Equal(t, 1, logs.FilterMessageSnippet("falling back").Len())
}

func TestResultCacheFactory_RedisRequired(t *testing.T) {
	f := NewResultCacheFactory(unreachableRedis, config.CacheConfig{Backend: "redis"},
		WithInMemoryFallback(false),
		WithDialTimeout(200*time.Millisecond),
	)

	_, err := f.CreateCache()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Redis required")
}

func TestResultCacheFactory_UnknownBackend(t *testing.T) {
	f := NewResultCacheFactory(unreachableRedis, config.CacheConfig{Backend: "memcached"})

	_, err := f.CreateCache()

	assert.Error(t, err)
}

func TestNewRedisResultCacheWithClient_DefaultPrefix(t *testing.T) {
	c := NewRedisResultCacheWithClient(nil, "")
	assert.Equal(t, defaultKeyPrefix, c.keyPrefix)
}
