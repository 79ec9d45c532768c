package handlers

import (
	"telugulearn/internal/config"
	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	"telugulearn/internal/services"
	contextutils "telugulearn/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// RegisterRequest is the body of POST /api/auth/register. Email and password
// format are checked by the user service after the username so that a taken
// username always reports a conflict.
type RegisterRequest struct {
	Username       string `json:"username" binding:"required,min=3,max=50"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Timezone       string `json:"timezone"`
	DisplayName    string `json:"display_name" binding:"max=100"`
	NativeLanguage string `json:"native_language" binding:"max=50"`
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries an opaque refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// PasswordResetRequest starts the reset flow for an email address
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required"`
}

// PasswordResetConfirmRequest completes the reset flow
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,password"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	User   *models.User      `json:"user"`
	Tokens *models.TokenPair `json:"tokens"`
}

// AuthHandler handles authentication related HTTP requests
type AuthHandler struct {
	userService services.UserServiceInterface
	authService services.AuthServiceInterface
	config      *config.Config
	logger      *observability.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(userService services.UserServiceInterface, authService services.AuthServiceInterface, cfg *config.Config, logger *observability.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		authService: authService,
		config:      cfg,
		logger:      logger,
	}
}

// Register creates an account and signs the new user in
func (h *AuthHandler) Register(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "register")
	defer observability.FinishSpan(span, nil)

	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	span.SetAttributes(attribute.String("auth.username", req.Username))

	user, err := h.userService.Register(ctx, services.RegisterInput{
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		Timezone:       req.Timezone,
		DisplayName:    req.DisplayName,
		NativeLanguage: req.NativeLanguage,
	})
	if err != nil {
		HandleAppError(c, err)
		return
	}

	tokens, err := h.authService.IssueTokens(ctx, user)
	if err != nil {
		h.logger.Error(ctx, "Failed to issue tokens after registration", err, map[string]interface{}{"user_id": user.ID})
		HandleAppError(c, err)
		return
	}

	respondCreated(c, "Registration successful", AuthResponse{User: user, Tokens: tokens})
}

// Login verifies credentials and returns a token pair
func (h *AuthHandler) Login(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "login")
	defer observability.FinishSpan(span, nil)

	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	span.SetAttributes(
		attribute.String("auth.username", req.Username),
		attribute.Bool("auth.password_provided", req.Password != ""),
	)

	user, err := h.userService.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		h.logger.Warn(ctx, "Authentication failed", map[string]interface{}{
			"username": req.Username,
			"code":     string(contextutils.GetErrorCode(err)),
		})
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(attribute.Int("user.id", user.ID))

	tokens, err := h.authService.IssueTokens(ctx, user)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	respondOK(c, "Login successful", AuthResponse{User: user, Tokens: tokens})
}

// Refresh rotates a refresh token
func (h *AuthHandler) Refresh(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "refresh")
	defer observability.FinishSpan(span, nil)

	var req RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	tokens, err := h.authService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Token refreshed", tokens)
}

// Logout revokes the presented refresh token. Unknown tokens are not an error.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "logout")
	defer observability.FinishSpan(span, nil)

	var req RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.Revoke(ctx, req.RefreshToken); err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Logged out", nil)
}

// RequestPasswordReset always answers 200 so that the endpoint cannot be used
// to discover registered addresses.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "request_password_reset")
	defer observability.FinishSpan(span, nil)

	var req PasswordResetRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.RequestPasswordReset(ctx, req.Email); err != nil {
		h.logger.Error(ctx, "Password reset request failed", err, nil)
	}
	respondOK(c, "If the address is registered, a reset link has been sent", nil)
}

// ConfirmPasswordReset sets a new password using an emailed reset token
func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "confirm_password_reset")
	defer observability.FinishSpan(span, nil)

	var req PasswordResetConfirmRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ConfirmPasswordReset(ctx, req.Token, req.NewPassword); err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Password has been reset", nil)
}

// Me returns the authenticated user with their profile
func (h *AuthHandler) Me(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "me")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUserWithProfile(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Current user", user)
}
