package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/at-ishikawa/leakdrill/internal/config"
	"github.com/at-ishikawa/leakdrill/internal/database"
)

func newMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema migrations",
	}

	migrateCmd.AddCommand(
		newMigrateRunCommand(database.MigrateUp, "Apply pending migrations"),
		newMigrateRunCommand(database.MigrateDown, "Revert applied migrations"),
		newMigrateVersionCommand(),
	)
	return migrateCmd
}

func newMigrateRunCommand(direction database.MigrationDirection, short string) *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   string(direction),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 0 {
				return fmt.Errorf("--steps must not be negative")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := requireSQLDatabase(cfg.Database); err != nil {
				return err
			}

			db, err := database.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("database.Open() > %w", err)
			}
			defer closeDB(db)

			if err := database.Migrate(db, direction, steps); err != nil {
				return fmt.Errorf("database.Migrate() > %w", err)
			}
			return printMigrationVersion(os.Stdout, db)
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "Number of migrations to run. 0 runs all of them")
	return cmd
}

func newMigrateVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := requireSQLDatabase(cfg.Database); err != nil {
				return err
			}

			db, err := database.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("database.Open() > %w", err)
			}
			defer closeDB(db)

			return printMigrationVersion(os.Stdout, db)
		},
	}
}

func printMigrationVersion(w io.Writer, db *sqlx.DB) error {
	version, dirty, err := database.MigrationVersion(db)
	if err != nil {
		return fmt.Errorf("database.MigrationVersion() > %w", err)
	}
	return writeMigrationVersion(w, version, dirty)
}

func writeMigrationVersion(w io.Writer, version uint, dirty bool) error {
	if version == 0 {
		_, err := fmt.Fprintln(w, "schema version: none")
		return err
	}
	if dirty {
		_, err := fmt.Fprintf(w, "schema version: %d (dirty)\n", version)
		return err
	}
	_, err := fmt.Fprintf(w, "schema version: %d\n", version)
	return err
}

func requireSQLDatabase(cfg config.DatabaseConfig) error {
	if cfg.Driver == config.DriverMemory {
		return fmt.Errorf("migrations need a SQL database, but the %q driver is configured", cfg.Driver)
	}
	return nil
}
