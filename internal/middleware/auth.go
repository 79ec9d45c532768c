// Package middleware provides authentication, request correlation and error
// recovery middleware for the Gin web framework.
package middleware

import (
	"strings"

	"telugulearn/internal/observability"
	"telugulearn/internal/services"
	contextutils "telugulearn/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// Gin context keys set by RequireAuth
const (
	// UserIDKey holds the authenticated user id
	UserIDKey = "user_id"
	// UsernameKey holds the authenticated username
	UsernameKey = "username"
	// IsAdminKey holds the admin flag from the token
	IsAdminKey = "is_admin"
)

// TokenVerifier verifies access tokens
type TokenVerifier interface {
	ParseAccessToken(tokenString string) (*services.AccessClaims, error)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth rejects requests without a valid bearer access token and puts
// the user id on both the gin context and the request context.
func RequireAuth(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			observability.Add(c.Request.Context(), observability.Metrics().AuthFailures, 1, attribute.String("reason", "missing_token"))
			HandleAppError(c, contextutils.WrapError(contextutils.ErrUnauthorized, "authentication required"))
			c.Abort()
			return
		}

		claims, err := tokens.ParseAccessToken(token)
		if err != nil {
			observability.Add(c.Request.Context(), observability.Metrics().AuthFailures, 1, attribute.String("reason", string(contextutils.GetErrorCode(err))))
			HandleAppError(c, err)
			c.Abort()
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			HandleAppError(c, contextutils.WrapError(contextutils.ErrTokenInvalid, "invalid token subject"))
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(UsernameKey, claims.Username)
		c.Set(IsAdminKey, claims.IsAdmin)
		c.Request = c.Request.WithContext(contextutils.WithUserID(c.Request.Context(), userID))

		c.Next()
	}
}

// RequireAdmin must run after RequireAuth and rejects non-admin tokens
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(IsAdminKey) {
			HandleAppError(c, contextutils.WrapError(contextutils.ErrForbidden, "admin access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID returns the authenticated user id set by RequireAuth
func GetUserID(c *gin.Context) (int, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int)
	return id, ok && id > 0
}
