package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/polkiloo/storepay/internal/config"
	"github.com/polkiloo/storepay/internal/di"
	"github.com/polkiloo/storepay/internal/usecase"
)

func drainCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "drain [flags]",
		Short:              "Process every due recovery job once and exit",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var queue *usecase.RecoveryQueue
			app := fx.New(
				fx.NopLogger,
				fx.Provide(func() context.Context { return ctx }),
				fx.Supply(config.Args(args)),
				di.Core(fx.Populate(&queue)),
			)
			if err := app.Start(ctx); err != nil {
				return fmt.Errorf("failed to start application: %w", err)
			}
			defer app.Stop(context.Background())

			summary, err := queue.Drain(ctx)
			if err != nil {
				return fmt.Errorf("drain recovery queue: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}
}
