package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/cryptostore/internal/config"
	"github.com/polkiloo/cryptostore/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewStoreFacade,
		newHTTPServer,
		newPaymentProcessor,
	),
	fx.Invoke(registerLifecycle),
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = time.Minute
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:              p.Config.RunAddress,
		Handler:           p.Router,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
}

type workerParams struct {
	fx.In

	Facade *StoreFacade
	Config *config.Config
	Logger *slog.Logger
}

func newPaymentProcessor(p workerParams) *worker.PaymentProcessor {
	return worker.NewPaymentProcessor(
		p.Facade,
		p.Config.PaymentPollInterval,
		p.Config.PollBatchSize,
		p.Config.WorkerPoolSize,
		p.Logger,
	)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Worker     *worker.PaymentProcessor
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting cryptostore", slog.String("addr", p.Server.Addr))
			// the start context is cancelled once startup completes
			p.Worker.Start(context.WithoutCancel(ctx))
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Worker.Stop()

			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Logger.Info("cryptostore stopped")
			return nil
		},
	})
}
