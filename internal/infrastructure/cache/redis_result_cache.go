package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "sales:report:"

// RedisResultCache implements ResultCache on Redis so results are shared by
// every instance. Keys are written without expiration.
type RedisResultCache struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host        string
	Port        int
	Password    string
	DB          int
	DialTimeout time.Duration
}

// NewRedisResultCache connects to Redis and verifies the connection.
func NewRedisResultCache(cfg RedisConfig, keyPrefix string) (*RedisResultCache, error) {
	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dial,
		MaxRetries:  -1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dial)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisResultCacheWithClient(client, keyPrefix), nil
}

// NewRedisResultCacheWithClient creates a cache over an existing client.
func NewRedisResultCacheWithClient(client *redis.Client, keyPrefix string) *RedisResultCache {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisResultCache{client: client, keyPrefix: keyPrefix}
}

func (c *RedisResultCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached result: %w", err)
	}
	return v, true, nil
}

func (c *RedisResultCache) Set(ctx context.Context, key string, value []byte) error {
	// Zero expiration: results live until cleared.
	if err := c.client.Set(ctx, c.keyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}
	return nil
}

func (c *RedisResultCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cached result: %w", err)
	}
	return nil
}

// Clear deletes every key under the cache prefix using SCAN, never KEYS.
func (c *RedisResultCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.keyPrefix+"*", 500).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 500 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to clear cached results: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cached results: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to clear cached results: %w", err)
		}
	}
	return nil
}

// Close closes the Redis client
func (c *RedisResultCache) Close() error {
	return c.client.Close()
}

var _ ResultCache = (*RedisResultCache)(nil)
