// Package storage selects the configured storage backend and wires it into fx.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/storepay/internal/config"
	"github.com/polkiloo/storepay/internal/domain/repository"
	"github.com/polkiloo/storepay/internal/storage/postgres"
	"github.com/polkiloo/storepay/internal/storage/sqlite"
)

// Module wires the storage port and its repositories.
var Module = fx.Options(
	fx.Provide(newStore),
	fx.Provide(
		func(s repository.Store) repository.OrderRepository { return s.Orders() },
		func(s repository.Store) repository.RecoveryRepository { return s.RecoveryJobs() },
	),
	fx.Invoke(registerLifecycle),
)

type storeParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

func newStore(p storeParams) (repository.Store, error) {
	return Open(p.Ctx, p.Config, p.Logger)
}

// Open connects to the backend named by cfg.StorageDriver.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres, "":
		return postgres.New(ctx, cfg.DatabaseURI, logger)
	case config.DriverSQLite:
		return sqlite.New(ctx, cfg.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func registerLifecycle(lc fx.Lifecycle, store repository.Store, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			store.Close()
			logger.Info("storage closed")
			return nil
		},
	})
}
