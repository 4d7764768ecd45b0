package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fived/therapists/internal/config"
	"github.com/fived/therapists/internal/logger"
	"github.com/fived/therapists/internal/storage"
)

func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long: `Apply every pending up migration to the configured PostgreSQL database.
The SQLite store creates its schema when opened and needs no migrations.`,
		Args: cobra.NoArgs,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.DB.Driver != config.DriverPostgres {
		fmt.Fprintf(cmd.OutOrStdout(), "Nothing to migrate for the %s driver\n", cfg.DB.Driver)
		return nil
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	if err := storage.Migrate(cfg.DB.DSN, cfg.DB.Migrations, log); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
	return nil
}
