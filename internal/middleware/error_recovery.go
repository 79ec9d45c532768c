package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"telugulearn/internal/observability"
	contextutils "telugulearn/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorRecoveryConfig configures error recovery behavior
type ErrorRecoveryConfig struct {
	// EnableCircuitBreaker sheds load with 503s after repeated server errors
	EnableCircuitBreaker bool
	// CircuitBreakerThreshold is the number of consecutive 5xx responses that opens the circuit
	CircuitBreakerThreshold int
	// CircuitBreakerTimeout is how long the circuit stays open
	CircuitBreakerTimeout time.Duration
}

// DefaultErrorRecoveryConfig returns a default error recovery configuration
func DefaultErrorRecoveryConfig() *ErrorRecoveryConfig {
	return &ErrorRecoveryConfig{
		EnableCircuitBreaker:    false,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
	}
}

type circuitBreakerState int

const (
	circuitClosed circuitBreakerState = iota
	circuitOpen
	circuitHalfOpen
)

type circuitBreaker struct {
	mu          sync.Mutex
	state       circuitBreakerState
	failures    int
	lastFailure time.Time
	config      *ErrorRecoveryConfig
}

func newCircuitBreaker(config *ErrorRecoveryConfig) *circuitBreaker {
	return &circuitBreaker{state: circuitClosed, config: config}
}

func (cb *circuitBreaker) canExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case circuitOpen:
		if time.Since(cb.lastFailure) > cb.config.CircuitBreakerTimeout {
			cb.state = circuitHalfOpen
			return true
		}
		return false
	default:
		return true
	}
}

func (cb *circuitBreaker) record(status int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if status >= http.StatusInternalServerError {
		cb.failures++
		cb.lastFailure = time.Now()
		if cb.state == circuitHalfOpen || cb.failures >= cb.config.CircuitBreakerThreshold {
			cb.state = circuitOpen
		}
		return
	}
	cb.failures = 0
	cb.state = circuitClosed
}

// ErrorRecoveryMiddleware turns panics into a generic 500 response and, when
// configured, opens a circuit breaker after repeated server errors.
func ErrorRecoveryMiddleware(logger *observability.Logger, config *ErrorRecoveryConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultErrorRecoveryConfig()
	}
	var cb *circuitBreaker
	if config.EnableCircuitBreaker {
		cb = newCircuitBreaker(config)
	}

	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				panicErr, ok := rec.(error)
				if !ok {
					panicErr = fmt.Errorf("panic: %v", rec)
				}
				if logger != nil {
					logger.Error(c.Request.Context(), "Panic recovered", panicErr, map[string]interface{}{
						"path":  c.Request.URL.Path,
						"stack": string(debug.Stack()),
					})
				}
				HandleAppError(c, contextutils.NewAppErrorWithCause(
					contextutils.ErrorCodeInternalError,
					contextutils.SeverityFatal,
					"Internal server error",
					"",
					panicErr,
				))
				c.Abort()
				if cb != nil {
					cb.record(http.StatusInternalServerError)
				}
			}
		}()

		if cb != nil && !cb.canExecute() {
			ServiceUnavailable(c, "Service temporarily unavailable due to high error rate")
			c.Abort()
			return
		}

		c.Next()

		if cb != nil {
			cb.record(c.Writer.Status())
		}
	}
}

// HandleAppError writes the error envelope for err. Server-side details are
// never returned to the client.
func HandleAppError(c *gin.Context, err error) {
	var appErr *contextutils.AppError
	if !errors.As(err, &appErr) {
		if errors.Is(err, context.DeadlineExceeded) {
			appErr = contextutils.NewAppErrorWithCause(contextutils.ErrorCodeTimeout, contextutils.SeverityWarn, "Request timeout", "", err)
		} else {
			appErr = contextutils.NewAppErrorWithCause(contextutils.ErrorCodeInternalError, contextutils.SeverityError, "Internal server error", "", err)
		}
	}
	body := appErr.ToJSON()
	if c.Request != nil {
		if locale := c.GetHeader("Accept-Language"); locale != "" {
			body = appErr.ToJSONWithLocale(locale)
		}
	}
	c.JSON(StatusForCode(appErr.Code), body)
}

// ServiceUnavailable sends a 503 with the standard envelope
func ServiceUnavailable(c *gin.Context, msg string) {
	HandleAppError(c, contextutils.NewAppError(contextutils.ErrorCodeServiceUnavailable, contextutils.SeverityError, msg, ""))
}

// StatusForCode maps AppError codes to HTTP status codes
func StatusForCode(code contextutils.ErrorCode) int {
	switch code {
	case contextutils.ErrorCodeInvalidInput, contextutils.ErrorCodeMissingRequired,
		contextutils.ErrorCodeValidationFailed, contextutils.ErrorCodeWeakPassword:
		return http.StatusBadRequest

	case contextutils.ErrorCodeUnauthorized, contextutils.ErrorCodeInvalidCredentials,
		contextutils.ErrorCodeTokenExpired, contextutils.ErrorCodeTokenInvalid:
		return http.StatusUnauthorized

	case contextutils.ErrorCodeForbidden, contextutils.ErrorCodeAccountInactive,
		contextutils.ErrorCodePrerequisiteNotMet:
		return http.StatusForbidden

	case contextutils.ErrorCodeRecordNotFound:
		return http.StatusNotFound

	case contextutils.ErrorCodeRecordExists, contextutils.ErrorCodeConflict,
		contextutils.ErrorCodeSessionClosed, contextutils.ErrorCodeChallengeCompleted:
		return http.StatusConflict

	case contextutils.ErrorCodeRateLimit:
		return http.StatusTooManyRequests

	case contextutils.ErrorCodeTimeout:
		return http.StatusRequestTimeout

	case contextutils.ErrorCodeServiceUnavailable, contextutils.ErrorCodeDatabaseConnection,
		contextutils.ErrorCodeAIProviderUnavailable:
		return http.StatusServiceUnavailable

	case contextutils.ErrorCodeAIRequestFailed, contextutils.ErrorCodeAIResponseInvalid:
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}
