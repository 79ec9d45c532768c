package handlers

import (
	"strings"

	"telugulearn/internal/observability"
	"telugulearn/internal/services"
	contextutils "telugulearn/internal/utils"

	"github.com/gin-gonic/gin"
)

// AdminSetPasswordRequest is the body of POST /api/admin/users/:id/reset-password
type AdminSetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,password"`
}

// UserAdminHandler handles user management operations
type UserAdminHandler struct {
	userService services.UserServiceInterface
	authService services.AuthServiceInterface
	logger      *observability.Logger
}

// NewUserAdminHandler creates a new UserAdminHandler instance
func NewUserAdminHandler(userService services.UserServiceInterface, authService services.AuthServiceInterface, logger *observability.Logger) *UserAdminHandler {
	return &UserAdminHandler{
		userService: userService,
		authService: authService,
		logger:      logger,
	}
}

// GetUsersPaginated handles GET /api/admin/users?page=&page_size=&search=
func (h *UserAdminHandler) GetUsersPaginated(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_list_users")
	defer observability.FinishSpan(span, nil)

	page, pageSize := ParsePagination(c, DefaultPage, DefaultPageSize, MaxPageSize)
	search := strings.TrimSpace(c.Query("search"))

	users, total, err := h.userService.ListUsers(ctx, page, pageSize, search)
	if err != nil {
		h.logger.Error(ctx, "Error retrieving paginated users", err, map[string]interface{}{
			"page":      page,
			"page_size": pageSize,
			"search":    search,
		})
		HandleAppError(c, contextutils.WrapError(err, "failed to retrieve users"))
		return
	}
	WritePaginated(c, "Users", "users", users, page, pageSize, total, nil)
}

// DeactivateUser handles POST /api/admin/users/:id/deactivate
func (h *UserAdminHandler) DeactivateUser(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_deactivate_user")
	defer observability.FinishSpan(span, nil)

	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.userService.Deactivate(ctx, userID); err != nil {
		HandleAppError(c, err)
		return
	}
	if err := h.authService.RevokeAllForUser(ctx, userID); err != nil {
		HandleAppError(c, err)
		return
	}

	h.logger.Info(ctx, "User deactivated by admin", map[string]interface{}{"user_id": userID})
	respondOK(c, "User deactivated", nil)
}

// ResetUserPassword handles POST /api/admin/users/:id/reset-password
func (h *UserAdminHandler) ResetUserPassword(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_reset_password")
	defer observability.FinishSpan(span, nil)

	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AdminSetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.SetPassword(ctx, userID, req.NewPassword); err != nil {
		h.logger.Error(ctx, "Error updating user password", err, map[string]interface{}{"user_id": userID})
		HandleAppError(c, err)
		return
	}
	if err := h.authService.RevokeAllForUser(ctx, userID); err != nil {
		HandleAppError(c, err)
		return
	}

	h.logger.Info(ctx, "Password reset by admin", map[string]interface{}{"user_id": userID})
	respondOK(c, "Password reset successfully", nil)
}
