package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the database schema",
	}
	cmd.AddCommand(
		migrateStep("up", "Apply all pending migrations", persistence.MigrateUp),
		migrateStep("down", "Roll back every migration", persistence.MigrateDown),
	)
	return cmd
}

func migrateStep(use, short string, direction persistence.MigrationDirection) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger, err := observability.NewLogger(cfg.Logger)
			if err != nil {
				return fmt.Errorf("failed to init logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			return persistence.RunMigrations(cfg.Postgres.DSN, direction, logger)
		},
	}
}
