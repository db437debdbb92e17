package commands

import (
	"fmt"

	"github.com/ingestkit/tipline/internal/logger"
	"github.com/ingestkit/tipline/pkg/store"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run database migrations for the work-item store.

This command applies pending schema migrations to the configured database
(SQLite or PostgreSQL). It is idempotent: running it against an already
up-to-date database is a no-op.

Examples:
  # Run migrations with default config
  tipline migrate

  # Run migrations with custom config
  tipline migrate --config /etc/tipline/config.yaml`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadAndLogConfig()
	if err != nil {
		return err
	}

	logger.Info("running database migrations", "type", cfg.Database.Type)

	st, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer func() { _ = st.Close() }()

	if err := st.Healthcheck(cmd.Context()); err != nil {
		return fmt.Errorf("migration verification failed: %w", err)
	}

	fmt.Printf("Migrations completed successfully (database type: %s)\n", cfg.Database.Type)
	return nil
}
