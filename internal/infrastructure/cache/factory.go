package cache

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/salesinsight/backend/internal/infrastructure/config"
)

// ResultCacheFactory creates result caches based on configuration
type ResultCacheFactory struct {
	redisConfig           config.RedisConfig
	cacheConfig           config.CacheConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	dialTimeout           time.Duration
}

// ResultCacheFactoryOption is a functional option for configuring the factory
type ResultCacheFactoryOption func(*ResultCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ResultCacheFactoryOption {
	return func(f *ResultCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) ResultCacheFactoryOption {
	return func(f *ResultCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithDialTimeout bounds the Redis connection check.
func WithDialTimeout(d time.Duration) ResultCacheFactoryOption {
	return func(f *ResultCacheFactory) {
		f.dialTimeout = d
	}
}

// NewResultCacheFactory creates a new factory
func NewResultCacheFactory(redisCfg config.RedisConfig, cacheCfg config.CacheConfig, opts ...ResultCacheFactoryOption) *ResultCacheFactory {
	f := &ResultCacheFactory{
		redisConfig:           redisCfg,
		cacheConfig:           cacheCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisCache creates a Redis-backed result cache
func (f *ResultCacheFactory) CreateRedisCache() (*RedisResultCache, error) {
	c, err := NewRedisResultCache(RedisConfig{
		Host:        f.redisConfig.Host,
		Port:        f.redisConfig.Port,
		Password:    f.redisConfig.Password,
		DB:          f.redisConfig.DB,
		DialTimeout: f.dialTimeout,
	}, f.cacheConfig.KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis result cache: %w", err)
	}
	return c, nil
}

// CreateCache creates the configured cache. A redis backend that cannot be
// reached falls back to memory when fallback is allowed.
func (f *ResultCacheFactory) CreateCache() (ResultCache, error) {
	switch f.cacheConfig.Backend {
	case "", "memory":
		f.logger.Info("using in-memory result cache")
		return NewInMemoryResultCache(), nil
	case "redis":
	default:
		return nil, fmt.Errorf("unknown cache backend %q", f.cacheConfig.Backend)
	}

	c, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis result cache", zap.String("addr", f.redisConfig.Addr()))
		return c, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for result cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory result cache. "+
		"Instances will not share cached reports.",
		zap.Error(err),
	)
	return NewInMemoryResultCache(), nil
}
