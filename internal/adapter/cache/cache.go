package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Tags used across the service. Explorer tips are tagged per provider.
const (
	TagOrders    = "orders"
	TagDiscounts = "discounts"
	TagPayments  = "payments"
)

// ExplorerTag returns the tag grouping cached chain data of provider.
func ExplorerTag(provider string) string {
	return "explorer:" + provider
}

// Cache stores JSON encoded values grouped by tags for bulk revalidation.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration, tags ...string) error
	InvalidateTags(ctx context.Context, tags ...string) (int64, error)
}

// RedisCache implements Cache on top of redis strings and tag sets.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// NewRedisCache wraps redis client. Keys are namespaced by prefix.
func NewRedisCache(client redis.UniversalClient, prefix string, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, logger: logger}
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

func (c *RedisCache) tagKey(tag string) string {
	return c.prefix + "tag:" + tag
}

// Get loads key into dest. Missing keys are not an error.
func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores value and registers the key under every tag.
func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration, tags ...string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}

	fullKey := c.key(key)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, fullKey, data, ttl)
		for _, tag := range tags {
			pipe.SAdd(ctx, c.tagKey(tag), fullKey)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// InvalidateTags drops every key registered under the tags and returns how
// many keys were removed.
func (c *RedisCache) InvalidateTags(ctx context.Context, tags ...string) (int64, error) {
	var removed int64
	for _, tag := range tags {
		tagKey := c.tagKey(tag)
		members, err := c.client.SMembers(ctx, tagKey).Result()
		if err != nil {
			return removed, fmt.Errorf("cache tag %s: %w", tag, err)
		}

		keys := append(members, tagKey)
		n, err := c.client.Del(ctx, keys...).Result()
		if err != nil {
			return removed, fmt.Errorf("cache invalidate %s: %w", tag, err)
		}
		if n > 0 {
			// the tag set itself is one of the deleted keys
			n--
		}
		removed += n
		c.logger.Debug("cache tag invalidated", slog.String("tag", tag), slog.Int64("keys", n))
	}
	return removed, nil
}

// NopCache never stores anything. Used when redis is not configured.
type NopCache struct{}

func (NopCache) Get(context.Context, string, any) (bool, error) { return false, nil }

func (NopCache) Set(context.Context, string, any, time.Duration, ...string) error { return nil }

func (NopCache) InvalidateTags(context.Context, ...string) (int64, error) { return 0, nil }
