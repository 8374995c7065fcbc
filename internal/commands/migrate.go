package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"gitlab.com/yelinaung/expense-approvals/internal/config"
	"gitlab.com/yelinaung/expense-approvals/internal/database"
	"gitlab.com/yelinaung/expense-approvals/internal/logger"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Storage != config.StoragePostgres {
				return fmt.Errorf("migrate requires STORAGE=%s, got %q", config.StoragePostgres, cfg.Storage)
			}

			pool, err := database.Connect(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := database.RunMigrations(cmd.Context(), pool); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			logger.Log.Info().Msg("Migrations applied")
			return nil
		},
	}
}
