package handlers

import (
	"telugulearn/internal/observability"
	"telugulearn/internal/services"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// AnalyticsHandler serves learning progress reports
type AnalyticsHandler struct {
	analyticsService services.AnalyticsServiceInterface
	logger           *observability.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler instance
func NewAnalyticsHandler(analyticsService services.AnalyticsServiceInterface, logger *observability.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService, logger: logger}
}

// Progress returns per-day totals for the last ?days= days
func (h *AnalyticsHandler) Progress(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "analytics_progress")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	days, ok := parseIntQuery(c, "days", services.DefaultProgressDays)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int("analytics.days", days))

	report, err := h.analyticsService.Progress(ctx, userID, days)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Progress", report)
}
