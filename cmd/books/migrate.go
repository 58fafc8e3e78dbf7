package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

This command ensures your local database has all the required
tables and indexes for the application to function properly.`,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	slog.Info("Running database migrations", "database", viper.GetString("database.path"))

	store, err := initStorage(cmd.Context())
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer func() { _ = store.Close() }()

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Database migrations completed successfully!"))
	return nil
}
