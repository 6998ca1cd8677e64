package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/biorag/internal/database"
	"github.com/cloo-solutions/biorag/internal/logger"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Applies all pending migrations to the database named by DATABASE_URL.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cfg.HasDatabase() {
				return fmt.Errorf("DATABASE_URL is required")
			}

			log, err := logger.New(cfg.Environment, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			dir, _ := cmd.Flags().GetString("migrations")
			return database.Migrate(cfg.DatabaseURL, dir, log)
		},
	}

	cmd.Flags().String("migrations", "migrations", "Directory containing migration files")

	return cmd
}
