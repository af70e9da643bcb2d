package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"budgetbee/internal/config"
	"budgetbee/internal/storage"
)

var flagMigrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := dbPath()
		if err != nil {
			return err
		}
		if err := storage.RunMigrations(path); err != nil {
			return err
		}
		return printVersion(cmd, path)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := dbPath()
		if err != nil {
			return err
		}
		if err := storage.RollbackMigrations(path, flagMigrateSteps); err != nil {
			return err
		}
		return printVersion(cmd, path)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := dbPath()
		if err != nil {
			return err
		}
		return printVersion(cmd, path)
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&flagMigrateSteps, "steps", 1, "Number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}

// dbPath only needs the database location, so the rest of the config is not
// validated here.
func dbPath() (string, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return "", err
	}
	if cfg.SQLiteDBPath == "" {
		return "", fmt.Errorf("SQLITE_DB_PATH is empty")
	}
	return cfg.SQLiteDBPath, nil
}

func printVersion(cmd *cobra.Command, path string) error {
	v, dirty, err := storage.MigrationVersion(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", v, dirty)
	return nil
}
