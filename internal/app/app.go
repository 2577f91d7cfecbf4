package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/storepay/internal/config"
	"github.com/polkiloo/storepay/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewPaymentsFacade,
		newHTTPServer,
		newRecoveryWorker,
	),
	fx.Invoke(registerLifecycle),
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	idleTimeout       = time.Minute
	// Callbacks may run for the whole shutdown window before responding.
	writeGrace = 5 * time.Second
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
	Logger *slog.Logger `optional:"true"`
}

func newHTTPServer(p serverParams) *http.Server {
	server := &http.Server{
		Addr:              p.Config.RunAddress,
		Handler:           p.Router,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      p.Config.ShutdownTimeout + writeGrace,
		IdleTimeout:       idleTimeout,
	}
	if p.Logger != nil {
		server.ErrorLog = slog.NewLogLogger(p.Logger.Handler(), slog.LevelWarn)
	}
	return server
}

type workerParams struct {
	fx.In

	Facade *PaymentsFacade
	Config *config.Config
	Logger *slog.Logger
}

func newRecoveryWorker(p workerParams) *worker.RecoveryWorker {
	return worker.NewRecoveryWorker(
		p.Facade,
		p.Config.RecoveryPollInterval,
		p.Config.RecoveryBatchSize,
		p.Config.RecoveryWorkers,
		p.Logger,
	)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Worker     *worker.RecoveryWorker
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting storepay", slog.String("addr", p.Server.Addr))
			p.Worker.Start(ctx)
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			// Stop accepting callbacks before the worker lets go of its leases.
			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				p.Worker.Stop()
				return err
			}
			p.Worker.Stop()
			p.Logger.Info("storepay stopped")
			return nil
		},
	})
}
