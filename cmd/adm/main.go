// Package main provides the administration CLI for the Telugu learning backend.
package main

import (
	"context"
	"fmt"
	"os"

	"telugulearn/cmd/adm/commands"
	"telugulearn/internal/config"
	"telugulearn/internal/database"
	"telugulearn/internal/observability"
	"telugulearn/internal/services"

	"github.com/spf13/cobra"
)

func main() {
	ctx := context.Background()

	if os.Getenv(config.ConfigFileEnv) == "" {
		for _, path := range []string{"config.yaml", "../config.yaml", "../../config.yaml"} {
			if _, err := os.Stat(path); err == nil {
				if err := os.Setenv(config.ConfigFileEnv, path); err != nil {
					fmt.Fprintf(os.Stderr, "Failed to set %s: %v\n", config.ConfigFileEnv, err)
					os.Exit(1)
				}
				break
			}
		}
	}

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// The CLI talks to stdout; keep telemetry exporters off
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "telugu-admin", "error")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if tp != nil {
			_ = tp.Shutdown(context.TODO())
		}
		if mp != nil {
			_ = mp.Shutdown(context.TODO())
		}
	}()

	dbManager := database.NewManager(logger)
	db, err := dbManager.InitDBWithoutMigrations(cfg.Database)
	if err != nil {
		logger.Error(ctx, "Failed to connect to database", err, nil)
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn(ctx, "Failed to close database connection", map[string]interface{}{"error": err.Error()})
		}
	}()

	emailService := services.CreateEmailService(cfg, logger)
	userService := services.NewUserServiceWithLogger(db, cfg, logger)
	gamificationService := services.NewGamificationServiceWithLogger(db, cfg, nil, emailService, logger)
	chapterService := services.NewChapterServiceWithLogger(db, gamificationService, logger)
	vocabularyService := services.NewVocabularyServiceWithLogger(db, logger)

	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "Telugu learning administration tool",
		Long: `Telugu learning administration tool

Manage users, seed the badge catalog and curriculum, re-evaluate awards,
import vocabulary workbooks and run schema migrations.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.AddCommand(commands.UserCommands(userService, logger, cfg.Database.URL))
	rootCmd.AddCommand(commands.SeedCommands(gamificationService, chapterService, logger))
	rootCmd.AddCommand(commands.AwardCommands(userService, gamificationService, logger))
	rootCmd.AddCommand(commands.VocabularyCommands(userService, vocabularyService, logger))
	rootCmd.AddCommand(commands.DatabaseCommands(dbManager, db, cfg.Database.URL, cfg.Server.MigrationsPath, logger))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
