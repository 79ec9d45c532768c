// Package main provides the entry point for the background worker service.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"telugulearn/internal/config"
	"telugulearn/internal/database"
	"telugulearn/internal/handlers"
	"telugulearn/internal/observability"
	"telugulearn/internal/services"
	"telugulearn/internal/worker"
)

// fatalIfErr logs the error with context and panics with a consistent message
func fatalIfErr(ctx context.Context, logger *observability.Logger, msg string, err error, fields map[string]interface{}) {
	logger.Error(ctx, msg, err, fields)
	panic(msg + ": " + err.Error())
}

func main() {
	ctx := context.Background()

	cfg, err := config.NewConfig()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, handlers.WorkerServiceName, cfg.Server.LogLevel)
	if err != nil {
		panic("Failed to initialize observability: " + err.Error())
	}
	defer func() {
		if tp != nil {
			if err := tp.Shutdown(context.TODO()); err != nil {
				logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error(), "provider": "tracer"})
			}
		}
		if mp != nil {
			if err := mp.Shutdown(context.TODO()); err != nil {
				logger.Warn(ctx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error(), "provider": "meter"})
			}
		}
	}()

	logger.Info(ctx, "Starting worker service", map[string]interface{}{
		"port":     cfg.Server.WorkerPort,
		"logLevel": cfg.Server.LogLevel,
	})

	// Migrations are owned by the API server and `adm db migrate`
	dbManager := database.NewManager(logger)
	db, err := dbManager.InitDBWithoutMigrations(cfg.Database)
	if err != nil {
		fatalIfErr(ctx, logger, "Failed to initialize database", err, nil)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn(ctx, "Failed to close database", map[string]interface{}{"error": err.Error()})
		}
	}()

	emailService := services.CreateEmailService(cfg, logger)
	userService := services.NewUserServiceWithLogger(db, cfg, logger)
	authService := services.NewAuthServiceWithLogger(db, cfg, userService, emailService, logger)
	gamificationService := services.NewGamificationServiceWithLogger(db, cfg, nil, emailService, logger)
	notificationService := services.NewNotificationServiceWithLogger(db, logger)
	workerService := services.NewWorkerServiceWithLogger(db, logger)

	instance, _ := os.Hostname()
	workerInstance := worker.NewWorker(gamificationService, authService, notificationService, workerService, instance, cfg, logger)

	workerCtx, stopWorker := context.WithCancel(ctx)
	workerDone := make(chan error, 1)
	go func() {
		workerDone <- workerInstance.Start(workerCtx)
	}()

	router := handlers.NewWorkerRouter(cfg, workerInstance, workerService, authService, db, logger)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.WorkerPort,
		Handler:           router,
		ReadHeaderTimeout: config.DefaultHTTPTimeout,
	}

	go func() {
		logger.Info(ctx, "Worker server starting", map[string]interface{}{"port": cfg.Server.WorkerPort})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatalIfErr(ctx, logger, "Failed to start worker server", err, map[string]interface{}{"port": cfg.Server.WorkerPort})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Info(ctx, "Worker server shutting down", map[string]interface{}{"service": "worker"})
	case err := <-workerDone:
		if err != nil {
			logger.Error(ctx, "Worker stopped unexpectedly", err, nil)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, config.WorkerShutdownTimeout)
	defer shutdownCancel()

	stopWorker()
	if err := workerInstance.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "Failed to shutdown worker", map[string]interface{}{"error": err.Error(), "service": "worker"})
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Worker server forced to shutdown", err, map[string]interface{}{"service": "worker"})
	}

	logger.Info(ctx, "Worker server exited", map[string]interface{}{"service": "worker"})
}
