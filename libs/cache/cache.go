// Package cache keeps cached views of catalog pages in Redis and invalidates them by path
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const keyPrefix = "cache:"

// RedisClient is the subset of the Redis client used by the cache
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Key returns the Redis key holding the cached view of a path
func Key(path string) string {
	return keyPrefix + path
}

// Cache stores JSON views keyed by page path
type Cache struct {
	client  RedisClient
	channel string
	logger  *zap.Logger
}

// New creates a cache that announces invalidations on channel
func New(client RedisClient, channel string, logger *zap.Logger) *Cache {
	return &Cache{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// GetJSON loads the cached view of path into dest
//
// Returns false when nothing is cached.
func (c *Cache) GetJSON(ctx context.Context, path string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, Key(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached value: %w", err)
	}
	return true, nil
}

// SetJSON caches the view of path for ttl
func (c *Cache) SetJSON(ctx context.Context, path string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	if err := c.client.Set(ctx, Key(path), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached views of the given paths and publishes each path once
func (c *Cache) Invalidate(ctx context.Context, paths ...string) error {
	seen := make(map[string]struct{}, len(paths))
	keys := make([]string, 0, len(paths))
	unique := make([]string, 0, len(paths))
	for _, path := range paths {
		if _, ok := seen[path]; ok || path == "" {
			continue
		}
		seen[path] = struct{}{}
		unique = append(unique, path)
		keys = append(keys, Key(path))
	}
	if len(keys) == 0 {
		return nil
	}

	var errs []error
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete cached views: %w", err))
	}
	for _, path := range unique {
		if err := c.client.Publish(ctx, c.channel, path).Err(); err != nil {
			errs = append(errs, fmt.Errorf("failed to publish invalidation of %s: %w", path, err))
		}
	}

	c.logger.Debug("invalidated cached views", zap.Strings("paths", unique))
	return errors.Join(errs...)
}
