package handlers

import (
	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	"telugulearn/internal/services"

	"github.com/gin-gonic/gin"
)

// UpdateProfileRequest is the body of PUT /api/user/profile. Absent fields
// are left unchanged.
type UpdateProfileRequest struct {
	Email            *string `json:"email" binding:"omitempty,email"`
	Timezone         *string `json:"timezone"`
	DisplayName      *string `json:"display_name" binding:"omitempty,max=100"`
	NativeLanguage   *string `json:"native_language" binding:"omitempty,max=50"`
	ProficiencyLevel *string `json:"proficiency_level" binding:"omitempty,oneof=beginner intermediate advanced"`
	DailyGoalMinutes *int    `json:"daily_goal_minutes" binding:"omitempty,min=1,max=600"`
}

// ChangePasswordRequest is the body of POST /api/user/change-password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,password"`
}

// UserHandler serves the authenticated user's own account
type UserHandler struct {
	userService services.UserServiceInterface
	authService services.AuthServiceInterface
	logger      *observability.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(userService services.UserServiceInterface, authService services.AuthServiceInterface, logger *observability.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		authService: authService,
		logger:      logger,
	}
}

// GetProfile returns the user with their learning profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_profile")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	profile, err := h.userService.GetUserWithProfile(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Profile", profile)
}

// UpdateProfile applies a partial profile update
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_profile")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	update := services.ProfileUpdate{
		Email:            req.Email,
		Timezone:         req.Timezone,
		DisplayName:      req.DisplayName,
		NativeLanguage:   req.NativeLanguage,
		DailyGoalMinutes: req.DailyGoalMinutes,
	}
	if req.ProficiencyLevel != nil {
		level := models.ProficiencyLevel(*req.ProficiencyLevel)
		update.ProficiencyLevel = &level
	}

	profile, err := h.userService.UpdateProfile(ctx, userID, update)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Profile updated", profile)
}

// ChangePassword replaces the password and signs out every other session
func (h *UserHandler) ChangePassword(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "change_password")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword); err != nil {
		HandleAppError(c, err)
		return
	}
	if err := h.authService.RevokeAllForUser(ctx, userID); err != nil {
		h.logger.Error(ctx, "Failed to revoke refresh tokens after password change", err, map[string]interface{}{"user_id": userID})
	}
	respondOK(c, "Password changed", nil)
}

// Deactivate disables the account and revokes its refresh tokens
func (h *UserHandler) Deactivate(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "deactivate")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
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
	respondOK(c, "Account deactivated", nil)
}
