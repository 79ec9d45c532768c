// Package main provides the main entry point for the Telugu learning backend server.
// It sets up the HTTP server, database connections, middleware, and API routes.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telugulearn/internal/config"
	"telugulearn/internal/di"
	"telugulearn/internal/handlers"
	"telugulearn/internal/observability"
	contextutils "telugulearn/internal/utils"

	"github.com/gin-gonic/gin"
)

// Application encapsulates the main application logic and can be tested
type Application struct {
	container di.ServiceContainerInterface
	router    *gin.Engine
	server    *http.Server
}

// NewApplication creates a new application instance
func NewApplication(container di.ServiceContainerInterface) (*Application, error) {
	userService, err := container.GetUserService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get user service")
	}
	authService, err := container.GetAuthService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get auth service")
	}
	vocabularyService, err := container.GetVocabularyService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get vocabulary service")
	}
	chapterService, err := container.GetChapterService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get chapter service")
	}
	gamificationService, err := container.GetGamificationService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get gamification service")
	}
	personalizationService, err := container.GetPersonalizationService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get personalization service")
	}
	analyticsService, err := container.GetAnalyticsService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get analytics service")
	}
	notificationService, err := container.GetNotificationService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get notification service")
	}
	aiService, err := container.GetAIService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get AI service")
	}

	var db handlers.Pinger
	if sqlDB := container.GetDatabase(); sqlDB != nil {
		db = sqlDB
	}

	router := handlers.NewRouter(
		container.GetConfig(),
		userService,
		authService,
		vocabularyService,
		chapterService,
		gamificationService,
		personalizationService,
		analyticsService,
		notificationService,
		aiService,
		db,
		container.GetLogger(),
	)

	return &Application{
		container: container,
		router:    router,
	}, nil
}

// Run serves HTTP until ctx is cancelled or the listener fails
func (a *Application) Run(ctx context.Context, port string) error {
	a.server = &http.Server{
		Addr:              ":" + port,
		Handler:           a.router,
		ReadHeaderTimeout: config.DefaultHTTPTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErr:
		return contextutils.WrapError(err, "server failed")
	}
}

// Shutdown stops accepting requests, drains in-flight ones, then releases services
func (a *Application) Shutdown(ctx context.Context) error {
	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, contextutils.WrapError(err, "http server shutdown failed"))
		}
	}
	if err := a.container.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, handlers.ServiceName, cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if tp != nil {
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error(), "provider": "tracer"})
			}
		}
		if mp != nil {
			if err := mp.Shutdown(shutdownCtx); err != nil {
				logger.Warn(ctx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error(), "provider": "meter"})
			}
		}
	}()

	logger.Info(ctx, "Starting Telugu learning backend", map[string]interface{}{
		"port":     cfg.Server.Port,
		"logLevel": cfg.Server.LogLevel,
	})

	container := di.NewServiceContainer(cfg, logger)
	if err := container.Initialize(ctx); err != nil {
		logger.Error(ctx, "Failed to initialize services", err, nil)
		os.Exit(1)
	}

	if err := container.EnsureAdminUser(ctx); err != nil {
		logger.Error(ctx, "Failed to ensure admin user exists", err, map[string]interface{}{"admin_username": cfg.Server.AdminUsername})
		os.Exit(1)
	}

	app, err := NewApplication(container)
	if err != nil {
		logger.Error(ctx, "Failed to create application", err, nil)
		os.Exit(1)
	}

	appErr := make(chan error, 1)
	go func() {
		if err := app.Run(ctx, cfg.Server.Port); err != nil {
			appErr <- err
		}
	}()

	select {
	case <-shutdownCh:
		logger.Info(ctx, "Received shutdown signal, shutting down gracefully", nil)
	case err := <-appErr:
		logger.Error(ctx, "Application failed", err, nil)
		os.Exit(1)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Error during application shutdown", err, nil)
		os.Exit(1)
	}

	logger.Info(ctx, "Shutdown completed successfully", nil)
}
