package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/polkiloo/cryptostore/internal/adapter/cache"
)

// cached returns the value stored under key or loads and stores it. Cache
// failures degrade to a direct load.
func cached[T any](ctx context.Context, c cache.Cache, logger *slog.Logger, key string, ttl time.Duration, tags []string, load func() (T, error)) (T, error) {
	var value T
	found, err := c.Get(ctx, key, &value)
	if err != nil {
		logger.Warn("cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		return value, nil
	}

	value, err = load()
	if err != nil {
		return value, err
	}
	if err := c.Set(ctx, key, value, ttl, tags...); err != nil {
		logger.Warn("cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return value, nil
}

func invalidate(ctx context.Context, c cache.Cache, logger *slog.Logger, tags ...string) {
	if _, err := c.InvalidateTags(ctx, tags...); err != nil {
		logger.Warn("cache invalidation failed", slog.Any("tags", tags), slog.String("error", err.Error()))
	}
}
