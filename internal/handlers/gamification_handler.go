package handlers

import (
	"encoding/json"
	"strings"

	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	"telugulearn/internal/services"
	contextutils "telugulearn/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// RecordActivityRequest is the body of POST /api/gamification/activity
type RecordActivityRequest struct {
	Type            string          `json:"activity_type" binding:"required,max=50"`
	Score           *int            `json:"score" binding:"omitempty,min=0,max=100"`
	DurationSeconds int             `json:"duration_seconds" binding:"min=0,max=86400"`
	Metadata        json.RawMessage `json:"metadata"`
}

// Activity types that only the server records
var serverOnlyActivities = map[string]bool{
	models.ActivityChapterCompleted:   true,
	models.ActivityDailyChallenge:     true,
	models.ActivityVocabularyPractice: true,
}

// GamificationHandler serves points, badges, leaderboards and challenges
type GamificationHandler struct {
	gamificationService services.GamificationServiceInterface
	logger              *observability.Logger
}

// NewGamificationHandler creates a new GamificationHandler instance
func NewGamificationHandler(gamificationService services.GamificationServiceInterface, logger *observability.Logger) *GamificationHandler {
	return &GamificationHandler{
		gamificationService: gamificationService,
		logger:              logger,
	}
}

// ListBadges returns the badge catalog
func (h *GamificationHandler) ListBadges(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_badges")
	defer observability.FinishSpan(span, nil)

	badges, err := h.gamificationService.ListBadges(ctx)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Badges", gin.H{"badges": badges})
}

// MyBadges returns the badges the user has earned
func (h *GamificationHandler) MyBadges(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "my_badges")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	badges, err := h.gamificationService.UserBadges(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Earned badges", gin.H{"badges": badges})
}

// Leaderboard returns the top users for ?period=all|weekly|monthly
func (h *GamificationHandler) Leaderboard(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "leaderboard")
	defer observability.FinishSpan(span, nil)

	period := models.LeaderboardPeriod(strings.ToLower(c.DefaultQuery("period", string(models.PeriodAll))))
	limit, ok := parseIntQuery(c, "limit", 0)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("leaderboard.period", string(period)))

	entries, err := h.gamificationService.Leaderboard(ctx, period, limit)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Leaderboard", gin.H{"period": period, "entries": entries})
}

// MyRank returns the user's position for ?period=
func (h *GamificationHandler) MyRank(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "my_rank")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	period := models.LeaderboardPeriod(strings.ToLower(c.DefaultQuery("period", string(models.PeriodAll))))

	entry, err := h.gamificationService.Rank(ctx, userID, period)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Rank", entry)
}

// DailyChallenge returns today's challenge and the user's progress on it
func (h *GamificationHandler) DailyChallenge(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "daily_challenge")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	status, err := h.gamificationService.TodayChallenge(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Daily challenge", status)
}

// CompleteDailyChallenge claims today's challenge bonus
func (h *GamificationHandler) CompleteDailyChallenge(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "complete_daily_challenge")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	outcome, err := h.gamificationService.CompleteDailyChallenge(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Daily challenge completed", outcome)
}

// Achievements lists every achievement with the user's progress
func (h *GamificationHandler) Achievements(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "achievements")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	achievements, err := h.gamificationService.Achievements(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Achievements", gin.H{"achievements": achievements})
}

// Stats returns the gamification summary for the user
func (h *GamificationHandler) Stats(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "stats")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	stats, err := h.gamificationService.Stats(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Stats", stats)
}

// RecordActivity logs a client-reported activity and returns what it earned
func (h *GamificationHandler) RecordActivity(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "record_activity")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req RecordActivityRequest
	if !bindJSON(c, &req) {
		return
	}
	activityType := strings.ToLower(strings.TrimSpace(req.Type))
	if serverOnlyActivities[activityType] {
		HandleAppError(c, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "activity type %q is recorded by the server", activityType))
		return
	}
	span.SetAttributes(attribute.String("activity.type", activityType))

	outcome, err := h.gamificationService.RecordActivity(ctx, userID, services.ActivityInput{
		Type:            activityType,
		Score:           req.Score,
		DurationSeconds: req.DurationSeconds,
		Metadata:        req.Metadata,
	})
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondCreated(c, "Activity recorded", outcome)
}
