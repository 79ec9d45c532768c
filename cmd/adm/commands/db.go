// Package commands provides CLI commands for the admin tool
package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"telugulearn/internal/config"
	"telugulearn/internal/observability"
	contextutils "telugulearn/internal/utils"

	"github.com/spf13/cobra"
)

// Migrator is the schema migration surface of database.Manager
type Migrator interface {
	RunMigrations(ctx context.Context, databaseURL, migrationsPath string) error
	MigrateDown(ctx context.Context, databaseURL, migrationsPath string, steps int) error
	MigrationVersion(databaseURL, migrationsPath string) (uint, bool, error)
}

// statsTables are the row counts reported by `db stats`
var statsTables = []string{
	"users", "vocabulary_words", "user_activity_log", "courses", "chapters",
	"user_badges", "user_achievements", "daily_challenges", "notifications", "chat_messages",
}

// DatabaseCommands returns the database management commands
func DatabaseCommands(migrator Migrator, db *sql.DB, databaseURL, migrationsPath string, logger *observability.Logger) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands.

Available commands:
  migrate   - Apply pending migrations
  down      - Roll back migrations
  version   - Show the schema version
  stats     - Show table row counts`,
	}

	dbCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := migrator.RunMigrations(cmd.Context(), databaseURL, migrationsPath); err != nil {
				return err
			}
			return printVersion(cmd, migrator, databaseURL, migrationsPath)
		},
	})
	dbCmd.AddCommand(migrateDownCmd(migrator, databaseURL, migrationsPath))
	dbCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printVersion(cmd, migrator, databaseURL, migrationsPath)
		},
	})
	dbCmd.AddCommand(statsCmd(db, databaseURL, logger))

	return dbCmd
}

func migrateDownCmd(migrator Migrator, databaseURL, migrationsPath string) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := migrator.MigrateDown(cmd.Context(), databaseURL, migrationsPath, steps); err != nil {
				return err
			}
			return printVersion(cmd, migrator, databaseURL, migrationsPath)
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")
	return cmd
}

func printVersion(cmd *cobra.Command, migrator Migrator, databaseURL, migrationsPath string) error {
	version, dirty, err := migrator.MigrationVersion(databaseURL, migrationsPath)
	if err != nil {
		return contextutils.WrapError(err, "failed to read schema version")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Schema version %d (dirty=%t)\n", version, dirty)
	return nil
}

func statsCmd(db *sql.DB, databaseURL string, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show table row counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger.Info(ctx, "Diagnostic info", map[string]interface{}{
				"config_file":  os.Getenv(config.ConfigFileEnv),
				"database_url": maskDatabaseURL(databaseURL),
			})

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, getDatabaseInfo(ctx, db))
			counts, err := tableCounts(ctx, db, statsTables)
			if err != nil {
				logger.Error(ctx, "Failed to collect statistics", err, nil)
				return err
			}
			for _, table := range statsTables {
				fmt.Fprintf(out, "%-20s %d\n", table, counts[table])
			}
			return nil
		},
	}
}
