package router

import (
	"go.uber.org/fx"

	"github.com/polkiloo/cryptostore/internal/app"
	"github.com/polkiloo/cryptostore/internal/server/http/handlers"
)

// Module registers HTTP router construction for fx runtime.
var Module = fx.Provide(
	func(f *app.StoreFacade) handlers.StoreFacade { return f },
	Setup,
)
