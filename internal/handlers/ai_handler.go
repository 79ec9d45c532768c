package handlers

import (
	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	"telugulearn/internal/services"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// MaxChatHistory bounds GET /api/chat/history?limit=
const MaxChatHistory = 100

// GenerateActivityRequest is the body of POST /api/activities/generate
type GenerateActivityRequest struct {
	Kind  string `json:"kind" binding:"required,oneof=quiz flashcard"`
	Topic string `json:"topic" binding:"max=200"`
	Level string `json:"level" binding:"omitempty,oneof=beginner intermediate advanced"`
	Count int    `json:"count" binding:"omitempty,min=1,max=20"`
}

// ChatMessageRequest is the body of POST /api/chat/message
type ChatMessageRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

// AIHandler serves generated activities and the tutor chat
type AIHandler struct {
	aiService services.AIServiceInterface
	logger    *observability.Logger
}

// NewAIHandler creates a new AIHandler instance
func NewAIHandler(aiService services.AIServiceInterface, logger *observability.Logger) *AIHandler {
	return &AIHandler{aiService: aiService, logger: logger}
}

// GenerateActivity asks the AI provider for a quiz or flashcard set
func (h *AIHandler) GenerateActivity(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "generate_activity")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req GenerateActivityRequest
	if !bindJSON(c, &req) {
		return
	}
	span.SetAttributes(attribute.String("ai.kind", req.Kind), attribute.Int("ai.count", req.Count))

	activity, err := h.aiService.GenerateActivity(ctx, userID, models.GenerateActivityRequest{
		Kind:  models.ActivityKind(req.Kind),
		Topic: req.Topic,
		Level: req.Level,
		Count: req.Count,
	})
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondCreated(c, "Activity generated", activity)
}

// ListActivities returns a page of the user's generated activities
func (h *AIHandler) ListActivities(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_activities")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page, pageSize := ParsePagination(c, DefaultPage, DefaultPageSize, MaxPageSize)

	activities, total, err := h.aiService.ListActivities(ctx, userID, page, pageSize)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	WritePaginated(c, "Activities", "activities", activities, page, pageSize, total, nil)
}

// GetActivity returns one generated activity
func (h *AIHandler) GetActivity(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_activity")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	activityID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	activity, err := h.aiService.GetActivity(ctx, userID, activityID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Activity", activity)
}

// SendChatMessage sends a message to the tutor and returns its reply
func (h *AIHandler) SendChatMessage(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "send_chat_message")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req ChatMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	reply, err := h.aiService.Chat(ctx, userID, req.Message)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Reply", reply)
}

// ChatHistory returns the most recent chat messages, oldest first
func (h *AIHandler) ChatHistory(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "chat_history")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	limit, ok := parseIntQuery(c, "limit", 0)
	if !ok {
		return
	}
	if limit > MaxChatHistory {
		limit = MaxChatHistory
	}

	messages, err := h.aiService.ChatHistory(ctx, userID, limit)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Chat history", gin.H{"messages": messages})
}

// ConcurrencyStats reports the AI limiter state for administrators
func (h *AIHandler) ConcurrencyStats(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "ai_concurrency_stats")
	defer observability.FinishSpan(span, nil)

	respondOK(c, "AI concurrency", gin.H{
		"enabled": h.aiService.Enabled(),
		"stats":   h.aiService.GetConcurrencyStats(),
	})
}
