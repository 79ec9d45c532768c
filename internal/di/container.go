// Package di provides dependency injection container for managing service lifecycle and dependencies.
package di

import (
	"context"
	"database/sql"
	"sync"

	"telugulearn/internal/cache"
	"telugulearn/internal/config"
	"telugulearn/internal/database"
	"telugulearn/internal/observability"
	"telugulearn/internal/services"
	"telugulearn/internal/services/mailer"
	contextutils "telugulearn/internal/utils"
)

// Service names used as container keys
const (
	serviceUser            = "user"
	serviceAuth            = "auth"
	serviceVocabulary      = "vocabulary"
	serviceChapter         = "chapter"
	serviceGamification    = "gamification"
	serviceNotification    = "notification"
	servicePersonalization = "personalization"
	serviceAnalytics       = "analytics"
	serviceAI              = "ai"
	serviceEmail           = "email"
	serviceWorker          = "worker"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetUserService() (services.UserServiceInterface, error)
	GetAuthService() (services.AuthServiceInterface, error)
	GetVocabularyService() (services.VocabularyServiceInterface, error)
	GetChapterService() (services.ChapterServiceInterface, error)
	GetGamificationService() (services.GamificationServiceInterface, error)
	GetNotificationService() (services.NotificationServiceInterface, error)
	GetPersonalizationService() (services.PersonalizationServiceInterface, error)
	GetAnalyticsService() (services.AnalyticsServiceInterface, error)
	GetAIService() (services.AIServiceInterface, error)
	GetEmailService() (mailer.Mailer, error)
	GetWorkerService() (services.WorkerServiceInterface, error)
	GetDatabase() *sql.DB
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	EnsureAdminUser(ctx context.Context) error
}

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg           *config.Config
	logger        *observability.Logger
	dbManager     *database.Manager
	db            *sql.DB
	cache         *cache.Cache
	services      map[string]interface{}
	mu            sync.RWMutex
	shutdownFuncs []func(context.Context) error
}

var _ ServiceContainerInterface = (*ServiceContainer)(nil)

// NewServiceContainer creates a new dependency injection container
func NewServiceContainer(cfg *config.Config, logger *observability.Logger) *ServiceContainer {
	return &ServiceContainer{
		cfg:      cfg,
		logger:   logger,
		services: make(map[string]interface{}),
	}
}

// Initialize opens the database and cache, then wires every service
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.dbManager = database.NewManager(sc.logger)
	db, err := sc.dbManager.InitDBWithConfig(sc.cfg.Database, sc.cfg.Server.MigrationsPath)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to initialize database")
	}
	sc.db = db
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		return db.Close()
	})

	// The leaderboard cache is optional; a missing or unreachable redis only
	// costs cache hits.
	lbCache, err := cache.New(ctx, sc.cfg.Redis, sc.logger)
	if err != nil {
		sc.logger.Warn(ctx, "Leaderboard cache disabled", map[string]interface{}{"error": err.Error()})
		lbCache = nil
	}
	if lbCache != nil {
		sc.cache = lbCache
		sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
			return lbCache.Close()
		})
	}

	if err := sc.initializeServices(ctx); err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to initialize services")
	}

	if err := sc.startupServices(ctx); err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to startup services")
	}

	return nil
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetUserService returns the user service
func (sc *ServiceContainer) GetUserService() (services.UserServiceInterface, error) {
	return GetServiceAs[services.UserServiceInterface](sc, serviceUser)
}

// GetAuthService returns the token service
func (sc *ServiceContainer) GetAuthService() (services.AuthServiceInterface, error) {
	return GetServiceAs[services.AuthServiceInterface](sc, serviceAuth)
}

// GetVocabularyService returns the vocabulary service
func (sc *ServiceContainer) GetVocabularyService() (services.VocabularyServiceInterface, error) {
	return GetServiceAs[services.VocabularyServiceInterface](sc, serviceVocabulary)
}

// GetChapterService returns the chapter service
func (sc *ServiceContainer) GetChapterService() (services.ChapterServiceInterface, error) {
	return GetServiceAs[services.ChapterServiceInterface](sc, serviceChapter)
}

// GetGamificationService returns the gamification service
func (sc *ServiceContainer) GetGamificationService() (services.GamificationServiceInterface, error) {
	return GetServiceAs[services.GamificationServiceInterface](sc, serviceGamification)
}

// GetNotificationService returns the notification service
func (sc *ServiceContainer) GetNotificationService() (services.NotificationServiceInterface, error) {
	return GetServiceAs[services.NotificationServiceInterface](sc, serviceNotification)
}

// GetPersonalizationService returns the personalization service
func (sc *ServiceContainer) GetPersonalizationService() (services.PersonalizationServiceInterface, error) {
	return GetServiceAs[services.PersonalizationServiceInterface](sc, servicePersonalization)
}

// GetAnalyticsService returns the analytics service
func (sc *ServiceContainer) GetAnalyticsService() (services.AnalyticsServiceInterface, error) {
	return GetServiceAs[services.AnalyticsServiceInterface](sc, serviceAnalytics)
}

// GetAIService returns the AI service
func (sc *ServiceContainer) GetAIService() (services.AIServiceInterface, error) {
	return GetServiceAs[services.AIServiceInterface](sc, serviceAI)
}

// GetEmailService returns the mailer
func (sc *ServiceContainer) GetEmailService() (mailer.Mailer, error) {
	return GetServiceAs[mailer.Mailer](sc, serviceEmail)
}

// GetWorkerService returns the worker bookkeeping service
func (sc *ServiceContainer) GetWorkerService() (services.WorkerServiceInterface, error) {
	return GetServiceAs[services.WorkerServiceInterface](sc, serviceWorker)
}

// GetDatabase returns the database instance
func (sc *ServiceContainer) GetDatabase() *sql.DB {
	return sc.db
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.cleanup(ctx)
}

// startupServices starts all services that implement a Startup method
func (sc *ServiceContainer) startupServices(ctx context.Context) error {
	for name, service := range sc.services {
		if lifecycleService, ok := service.(interface{ Startup(context.Context) error }); ok {
			sc.logger.Info(ctx, "Starting service", map[string]interface{}{"service": name})
			if err := lifecycleService.Startup(ctx); err != nil {
				return contextutils.WrapErrorf(err, "failed to startup service %s", name)
			}
		}
	}
	return nil
}

// cleanup shuts down lifecycle services, then releases connections in
// reverse order of acquisition
func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errs []error

	for name, service := range sc.services {
		if lifecycleService, ok := service.(interface{ Shutdown(context.Context) error }); ok {
			sc.logger.Info(ctx, "Shutting down service", map[string]interface{}{"service": name})
			if err := lifecycleService.Shutdown(ctx); err != nil {
				sc.logger.Error(ctx, "Failed to shutdown service", err, map[string]interface{}{"service": name})
				errs = append(errs, contextutils.WrapErrorf(err, "service %s shutdown failed", name))
			}
		}
	}

	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	sc.shutdownFuncs = nil

	if len(errs) > 0 {
		return contextutils.ErrorWithContextf("shutdown errors: %v", errs)
	}
	return nil
}

// initializeServices sets up all service dependencies
func (sc *ServiceContainer) initializeServices(_ context.Context) error {
	emailService := services.CreateEmailService(sc.cfg, sc.logger)
	sc.services[serviceEmail] = emailService

	userService := services.NewUserServiceWithLogger(sc.db, sc.cfg, sc.logger)
	sc.services[serviceUser] = userService

	sc.services[serviceAuth] = services.NewAuthServiceWithLogger(sc.db, sc.cfg, userService, emailService, sc.logger)

	vocabularyService := services.NewVocabularyServiceWithLogger(sc.db, sc.logger)
	sc.services[serviceVocabulary] = vocabularyService

	var lb cache.LeaderboardCache
	if sc.cache != nil {
		lb = sc.cache
	}
	userService.SetLeaderboardCache(lb)
	gamificationService := services.NewGamificationServiceWithLogger(sc.db, sc.cfg, lb, emailService, sc.logger)
	sc.services[serviceGamification] = gamificationService

	// Chapter completion is credited through the gamification service
	chapterService := services.NewChapterServiceWithLogger(sc.db, gamificationService, sc.logger)
	sc.services[serviceChapter] = chapterService

	notificationService := services.NewNotificationServiceWithLogger(sc.db, sc.logger)
	sc.services[serviceNotification] = notificationService

	sc.services[servicePersonalization] = services.NewPersonalizationServiceWithLogger(
		sc.db, userService, vocabularyService, gamificationService, chapterService, notificationService, sc.logger)

	sc.services[serviceAnalytics] = services.NewAnalyticsServiceWithLogger(sc.db, sc.logger)

	sc.services[serviceWorker] = services.NewWorkerServiceWithLogger(sc.db, sc.logger)

	aiService, err := services.NewAIServiceWithLogger(sc.db, sc.cfg, sc.logger)
	if err != nil {
		return contextutils.WrapError(err, "failed to create AI service")
	}
	sc.services[serviceAI] = aiService

	return nil
}

// EnsureAdminUser creates the configured admin user if it doesn't exist
func (sc *ServiceContainer) EnsureAdminUser(ctx context.Context) error {
	userService, err := sc.GetUserService()
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to get user service")
	}

	return userService.EnsureAdminUser(ctx, sc.cfg.Server.AdminUsername, sc.cfg.Server.AdminEmail, sc.cfg.Server.AdminPassword)
}
