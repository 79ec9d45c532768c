package handlers

import (
	"strconv"

	"telugulearn/internal/observability"
	"telugulearn/internal/services"

	"github.com/gin-gonic/gin"
)

// NotificationHandler serves the user's notification log
type NotificationHandler struct {
	notificationService services.NotificationServiceInterface
	logger              *observability.Logger
}

// NewNotificationHandler creates a new NotificationHandler instance
func NewNotificationHandler(notificationService services.NotificationServiceInterface, logger *observability.Logger) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, logger: logger}
}

// List returns a page of notifications, newest first. ?unread=true limits
// the page to unread ones.
func (h *NotificationHandler) List(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_notifications")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page, pageSize := ParsePagination(c, DefaultPage, DefaultPageSize, MaxPageSize)
	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))

	items, total, err := h.notificationService.List(ctx, userID, page, pageSize, unreadOnly)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	unread, err := h.notificationService.UnreadCount(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	WritePaginated(c, "Notifications", "notifications", items, page, pageSize, total, gin.H{"unread_count": unread})
}

// MarkRead marks one notification as read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "mark_notification_read")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	notificationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(ctx, userID, notificationID); err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Notification marked as read", nil)
}

// MarkAllRead marks every notification of the user as read
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "mark_all_notifications_read")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	updated, err := h.notificationService.MarkAllRead(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Notifications marked as read", gin.H{"updated": updated})
}

// UnreadCount returns how many notifications are unread
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "unread_notification_count")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	count, err := h.notificationService.UnreadCount(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Unread notifications", gin.H{"unread_count": count})
}
