package cache

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/polkiloo/cryptostore/internal/config"
)

const keyPrefix = "cryptostore:"

// Module provides the tagged cache. Without REDIS_ADDRESS caching is disabled.
var Module = fx.Provide(newCache)

type cacheParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
}

func newCache(p cacheParams) Cache {
	if p.Config.RedisAddress == "" {
		p.Logger.Info("redis address not configured, caching disabled")
		return NopCache{}
	}

	client := redis.NewClient(&redis.Options{Addr: p.Config.RedisAddress})
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				// the service keeps working on a cold cache
				p.Logger.Warn("redis unreachable", slog.String("address", p.Config.RedisAddress), slog.String("error", err.Error()))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return NewRedisCache(client, keyPrefix, p.Logger)
}
