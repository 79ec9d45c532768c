package handlers

import (
	"context"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"telugulearn/internal/config"
	"telugulearn/internal/middleware"
	"telugulearn/internal/observability"
	"telugulearn/internal/services"
	contextutils "telugulearn/internal/utils"
)

// ServiceName identifies the API server in traces and the route index
const ServiceName = "telugu-backend"

// RegisterValidators installs the custom binding rules on gin's validator
func RegisterValidators(policy contextutils.PasswordPolicy) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return contextutils.ErrorWithContextf("unexpected binding validator engine %T", binding.Validator.Engine())
	}
	return contextutils.RegisterPasswordRule(v, policy)
}

// NewRouter creates a new router factory with all the necessary middleware and routes
func NewRouter(
	cfg *config.Config,
	userService services.UserServiceInterface,
	authService services.AuthServiceInterface,
	vocabularyService services.VocabularyServiceInterface,
	chapterService services.ChapterServiceInterface,
	gamificationService services.GamificationServiceInterface,
	personalizationService services.PersonalizationServiceInterface,
	analyticsService services.AnalyticsServiceInterface,
	notificationService services.NotificationServiceInterface,
	aiService services.AIServiceInterface,
	db Pinger,
	logger *observability.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	if err := RegisterValidators(cfg.Auth.PasswordPolicy()); err != nil {
		logger.Error(context.Background(), "Failed to register request validators", err)
	}

	router := gin.New()
	router.RedirectTrailingSlash = false

	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorRecoveryMiddleware(logger, middleware.DefaultErrorRecoveryConfig()))
	router.Use(middleware.RequestLogger(logger))

	healthHandler := NewHealthHandler(db, ServiceName, logger)
	// Health check is registered ahead of tracing so probes stay out of traces
	router.GET("/health", healthHandler.Health)

	router.Use(observability.GinMiddleware(ServiceName))
	router.Use(observability.ErrorSpanMiddleware())

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader, "Content-Disposition"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.IsDevelopment = cfg.Server.Debug
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	authHandler := NewAuthHandler(userService, authService, cfg, logger)
	userHandler := NewUserHandler(userService, authService, logger)
	userAdminHandler := NewUserAdminHandler(userService, authService, logger)
	gamificationHandler := NewGamificationHandler(gamificationService, logger)
	personalizationHandler := NewPersonalizationHandler(personalizationService, vocabularyService, gamificationService, logger)
	chapterHandler := NewChapterHandler(chapterService, logger)
	aiHandler := NewAIHandler(aiService, logger)
	analyticsHandler := NewAnalyticsHandler(analyticsService, logger)
	notificationHandler := NewNotificationHandler(notificationService, logger)

	requireAuth := middleware.RequireAuth(authService)

	router.GET("/version", healthHandler.Version)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
			auth.POST("/password-reset/request", authHandler.RequestPasswordReset)
			auth.POST("/password-reset/confirm", authHandler.ConfirmPasswordReset)
			auth.GET("/me", requireAuth, authHandler.Me)
		}

		user := api.Group("/user")
		user.Use(requireAuth)
		{
			user.GET("/profile", userHandler.GetProfile)
			user.PUT("/profile", userHandler.UpdateProfile)
			user.POST("/change-password", userHandler.ChangePassword)
			user.POST("/deactivate", userHandler.Deactivate)
		}

		gamification := api.Group("/gamification")
		gamification.GET("/badges", gamificationHandler.ListBadges)
		gamification.GET("/leaderboard", gamificationHandler.Leaderboard)
		gamification.Use(requireAuth)
		{
			gamification.GET("/badges/me", gamificationHandler.MyBadges)
			gamification.GET("/leaderboard/rank", gamificationHandler.MyRank)
			gamification.GET("/daily-challenge", gamificationHandler.DailyChallenge)
			gamification.POST("/daily-challenge/complete", gamificationHandler.CompleteDailyChallenge)
			gamification.GET("/achievements", gamificationHandler.Achievements)
			gamification.GET("/stats", gamificationHandler.Stats)
			gamification.POST("/activity", gamificationHandler.RecordActivity)
		}

		personalization := api.Group("/personalization")
		personalization.Use(requireAuth)
		{
			personalization.GET("/goals", personalizationHandler.ListGoals)
			personalization.POST("/goals", personalizationHandler.CreateGoal)
			personalization.PUT("/goals/:id", personalizationHandler.UpdateGoal)
			personalization.DELETE("/goals/:id", personalizationHandler.DeleteGoal)
			personalization.POST("/assessment", personalizationHandler.SubmitAssessment)
			personalization.GET("/dashboard", personalizationHandler.Dashboard)
			personalization.POST("/sessions", personalizationHandler.StartSession)
			personalization.POST("/sessions/:id/end", personalizationHandler.EndSession)
			personalization.GET("/vocabulary", personalizationHandler.ListVocabulary)
			personalization.POST("/vocabulary", personalizationHandler.AddWord)
			personalization.GET("/vocabulary/export", personalizationHandler.ExportVocabulary)
			personalization.DELETE("/vocabulary/:id", personalizationHandler.DeleteWord)
			personalization.POST("/vocabulary/:id/practice", personalizationHandler.PracticeWord)
		}

		courses := api.Group("/courses")
		{
			courses.GET("", chapterHandler.ListCourses)
			courses.GET("/:id/chapters", chapterHandler.ListChapters)
		}

		chapters := api.Group("/chapters")
		chapters.GET("/:id", chapterHandler.GetChapter)
		chapters.Use(requireAuth)
		{
			chapters.GET("/:id/access", chapterHandler.CheckAccess)
			chapters.POST("/:id/progress", chapterHandler.RecordProgress)
		}
		api.GET("/learning-path", requireAuth, chapterHandler.LearningPath)

		activities := api.Group("/activities")
		activities.Use(requireAuth)
		{
			activities.POST("/generate", aiHandler.GenerateActivity)
			activities.GET("", aiHandler.ListActivities)
			activities.GET("/:id", aiHandler.GetActivity)
		}

		chat := api.Group("/chat")
		chat.Use(requireAuth)
		{
			chat.POST("/message", aiHandler.SendChatMessage)
			chat.GET("/history", aiHandler.ChatHistory)
		}

		api.GET("/analytics/progress", requireAuth, analyticsHandler.Progress)

		notifications := api.Group("/notifications")
		notifications.Use(requireAuth)
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
		}

		admin := api.Group("/admin")
		admin.Use(requireAuth, middleware.RequireAdmin())
		{
			admin.GET("/users", userAdminHandler.GetUsersPaginated)
			admin.POST("/users/:id/deactivate", userAdminHandler.DeactivateUser)
			admin.POST("/users/:id/reset-password", userAdminHandler.ResetUserPassword)
			admin.GET("/ai-concurrency", aiHandler.ConcurrencyStats)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		HandleAppError(c, contextutils.NewAppError(
			contextutils.ErrorCodeRecordNotFound,
			contextutils.SeverityInfo,
			"Not found",
			strings.TrimSpace(c.Request.Method+" "+c.Request.URL.Path),
		))
	})

	routeListing := NewRouteListingHandler(ServiceName)
	routeListing.CollectRoutes(router)
	router.GET("/", routeListing.GetRouteListingJSON)

	return router
}
