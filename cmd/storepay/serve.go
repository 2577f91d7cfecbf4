package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/polkiloo/storepay/internal/config"
	"github.com/polkiloo/storepay/internal/di"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve [flags]",
		Short: "Run the HTTP API and the recovery worker",
		Long: `Run the HTTP API and the background recovery worker.

Configuration is read from the environment, an optional .env file
and the flags below, e.g.

  storepay serve -a :8080 -storage sqlite -sqlite-path shop.db`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app := fx.New(
				fx.Provide(func() context.Context { return ctx }),
				fx.Supply(config.Args(args)),
				di.Module(),
			)

			return run(ctx, app)
		},
	}
}
