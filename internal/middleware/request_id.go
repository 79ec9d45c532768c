package middleware

import (
	"telugulearn/internal/observability"
	contextutils "telugulearn/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// RequestID accepts a caller-supplied id or generates one, echoes it on the
// response and stores it on the request context and span.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)

		ctx := contextutils.WithRequestID(c.Request.Context(), id)
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("request.id", id))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogger writes one line per request after it completes
func RequestLogger(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"request_id": contextutils.GetRequestIDFromContext(c.Request.Context()),
		}
		if userID, ok := GetUserID(c); ok {
			fields["user_id"] = userID
		}
		if c.Writer.Status() >= 500 {
			logger.Warn(c.Request.Context(), "Request failed", fields)
			return
		}
		logger.Debug(c.Request.Context(), "Request completed", fields)
	}
}
