package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/cryptostore/internal/adapter/cache"
	"github.com/polkiloo/cryptostore/internal/adapter/events"
	"github.com/polkiloo/cryptostore/internal/adapter/explorer"
	"github.com/polkiloo/cryptostore/internal/app"
	"github.com/polkiloo/cryptostore/internal/config"
	"github.com/polkiloo/cryptostore/internal/logger"
	"github.com/polkiloo/cryptostore/internal/pkg/auth"
	"github.com/polkiloo/cryptostore/internal/server/http/router"
	"github.com/polkiloo/cryptostore/internal/storage/postgres"
	"github.com/polkiloo/cryptostore/internal/usecase"
)

// Module composes the full application graph. opts are appended last so
// tests can replace any component.
func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		postgres.Module,
		cache.Module,
		events.Module,
		explorer.Module,
		usecase.Module,
		fx.Provide(func(s *postgres.Storage) app.HealthChecker { return s }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
