package handlers

import (
	"context"
	"strings"

	"telugulearn/internal/config"
	"telugulearn/internal/middleware"
	"telugulearn/internal/observability"
	"telugulearn/internal/services"
	contextutils "telugulearn/internal/utils"
	"telugulearn/internal/worker"

	"github.com/gin-gonic/gin"
)

// WorkerServiceName identifies the worker process in traces and the route index
const WorkerServiceName = "telugu-worker"

// WorkerController is the part of *worker.Worker the admin endpoints drive
type WorkerController interface {
	GetInstance() string
	GetStatus() worker.Status
	GetHistory() []worker.RunRecord
	GetActivityLogs() []worker.ActivityLog
	JobNames() []string
	TriggerManualRun(job string) error
	Pause(ctx context.Context)
	Resume(ctx context.Context)
}

var _ WorkerController = (*worker.Worker)(nil)

// WorkerAdminHandler exposes worker status and controls to administrators
type WorkerAdminHandler struct {
	worker        WorkerController
	workerService services.WorkerServiceInterface
	logger        *observability.Logger
}

// NewWorkerAdminHandler creates a new WorkerAdminHandler instance
func NewWorkerAdminHandler(w WorkerController, workerService services.WorkerServiceInterface, logger *observability.Logger) *WorkerAdminHandler {
	return &WorkerAdminHandler{worker: w, workerService: workerService, logger: logger}
}

// GetStatus returns this instance's in-memory status and the registered jobs
func (h *WorkerAdminHandler) GetStatus(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_worker_status")
	defer observability.FinishSpan(span, nil)

	respondOK(c, "Worker status", gin.H{
		"instance": h.worker.GetInstance(),
		"status":   h.worker.GetStatus(),
		"jobs":     h.worker.JobNames(),
	})
}

// GetHistory returns recent job runs
func (h *WorkerAdminHandler) GetHistory(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_worker_history")
	defer observability.FinishSpan(span, nil)

	respondOK(c, "Worker history", gin.H{"runs": h.worker.GetHistory()})
}

// GetActivityLogs returns the bounded activity log
func (h *WorkerAdminHandler) GetActivityLogs(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_worker_logs")
	defer observability.FinishSpan(span, nil)

	respondOK(c, "Worker activity", gin.H{"logs": h.worker.GetActivityLogs()})
}

// GetHealth summarizes every instance recorded in the database
func (h *WorkerAdminHandler) GetHealth(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_worker_health")
	defer observability.FinishSpan(span, nil)

	health, err := h.workerService.GetWorkerHealth(ctx)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Worker health", health)
}

// Trigger queues the job named in the path
func (h *WorkerAdminHandler) Trigger(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "trigger_worker_job")
	defer observability.FinishSpan(span, nil)

	job := strings.TrimSpace(c.Param("job"))
	if err := h.worker.TriggerManualRun(job); err != nil {
		HandleAppError(c, err)
		return
	}
	h.logger.Info(ctx, "Worker job triggered by admin", map[string]interface{}{"job": job})
	respondOK(c, "Job queued", gin.H{"job": job})
}

// Pause stops this instance from running jobs
func (h *WorkerAdminHandler) Pause(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "pause_worker")
	defer observability.FinishSpan(span, nil)

	h.worker.Pause(ctx)
	respondOK(c, "Worker paused", gin.H{"status": h.worker.GetStatus()})
}

// Resume lets this instance run jobs again
func (h *WorkerAdminHandler) Resume(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "resume_worker")
	defer observability.FinishSpan(span, nil)

	h.worker.Resume(ctx)
	respondOK(c, "Worker resumed", gin.H{"status": h.worker.GetStatus()})
}

type globalPauseRequest struct {
	Paused *bool `json:"paused" binding:"required"`
}

// SetGlobalPause pauses or resumes every worker instance
func (h *WorkerAdminHandler) SetGlobalPause(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "set_global_pause")
	defer observability.FinishSpan(span, nil)

	var req globalPauseRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.workerService.SetGlobalPause(ctx, *req.Paused); err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Global pause updated", gin.H{"global_paused": *req.Paused})
}

// NewWorkerRouter builds the worker process's HTTP surface: an unauthenticated
// /health probe plus admin-only status and control endpoints.
func NewWorkerRouter(
	cfg *config.Config,
	w WorkerController,
	workerService services.WorkerServiceInterface,
	tokens middleware.TokenVerifier,
	db Pinger,
	logger *observability.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorRecoveryMiddleware(logger, middleware.DefaultErrorRecoveryConfig()))

	healthHandler := NewHealthHandler(db, WorkerServiceName, logger)
	router.GET("/health", healthHandler.Health)

	router.Use(observability.GinMiddleware(WorkerServiceName))
	router.Use(observability.ErrorSpanMiddleware())
	router.GET("/version", healthHandler.Version)

	adminHandler := NewWorkerAdminHandler(w, workerService, logger)
	admin := router.Group("/admin/worker")
	admin.Use(middleware.RequireAuth(tokens), middleware.RequireAdmin())
	{
		admin.GET("/status", adminHandler.GetStatus)
		admin.GET("/history", adminHandler.GetHistory)
		admin.GET("/logs", adminHandler.GetActivityLogs)
		admin.GET("/health", adminHandler.GetHealth)
		admin.POST("/trigger/:job", adminHandler.Trigger)
		admin.POST("/pause", adminHandler.Pause)
		admin.POST("/resume", adminHandler.Resume)
		admin.POST("/global-pause", adminHandler.SetGlobalPause)
	}

	router.NoRoute(func(c *gin.Context) {
		HandleAppError(c, contextutils.NewAppError(
			contextutils.ErrorCodeRecordNotFound,
			contextutils.SeverityInfo,
			"Not found",
			strings.TrimSpace(c.Request.Method+" "+c.Request.URL.Path),
		))
	})

	routeListing := NewRouteListingHandler(WorkerServiceName)
	routeListing.CollectRoutes(router)
	router.GET("/", routeListing.GetRouteListingJSON)

	return router
}
