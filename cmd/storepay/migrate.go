package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polkiloo/storepay/internal/config"
	"github.com/polkiloo/storepay/internal/logger"
	"github.com/polkiloo/storepay/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "migrate [flags]",
		Short:              "Apply pending schema migrations",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.Args(args))
			if err != nil {
				return err
			}
			log := logger.New(cfg.LogLevel)

			store, err := storage.Open(cmd.Context(), cfg, log)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer store.Close()

			if err := store.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", cfg.StorageDriver)
			return nil
		},
	}
}
