package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	contextutils "telugulearn/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultErrorRecoveryConfig(t *testing.T) {
	config := DefaultErrorRecoveryConfig()

	assert.False(t, config.EnableCircuitBreaker)
	assert.Equal(t, 5, config.CircuitBreakerThreshold)
	assert.Equal(t, 30*time.Second, config.CircuitBreakerTimeout)
}

func TestErrorRecoveryMiddleware_PanicRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorRecoveryMiddleware(nil, nil))
	router.GET("/panic", func(_ *gin.Context) {
		panic("secret internal detail")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret internal detail")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(contextutils.ErrorCodeInternalError), body["code"])
}

func TestErrorRecoveryMiddleware_NormalRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorRecoveryMiddleware(nil, nil))
	router.GET("/normal", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/normal", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrorRecoveryMiddleware_CircuitBreaker(t *testing.T) {
	gin.SetMode(gin.TestMode)

	failing := true
	router := gin.New()
	router.Use(ErrorRecoveryMiddleware(nil, &ErrorRecoveryConfig{
		EnableCircuitBreaker:    true,
		CircuitBreakerThreshold: 2,
		CircuitBreakerTimeout:   time.Hour,
	}))
	router.GET("/flaky", func(c *gin.Context) {
		if failing {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/flaky", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	}

	failing = false
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/flaky", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "circuit is open")
}

func TestHandleAppError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantDetails bool
	}{
		{"not found", contextutils.WrapError(contextutils.ErrRecordNotFound, "word not found"), http.StatusNotFound, true},
		{"duplicate", contextutils.WrapError(contextutils.ErrRecordExists, "username taken"), http.StatusConflict, true},
		{"prerequisite", contextutils.NewAppError(contextutils.ErrorCodePrerequisiteNotMet, contextutils.SeverityInfo, "pass Alphabet first", ""), http.StatusForbidden, false},
		{"session closed", contextutils.ErrSessionClosed, http.StatusConflict, false},
		{"weak password", contextutils.WrapError(contextutils.ErrWeakPassword, "needs a digit"), http.StatusBadRequest, true},
		{"expired", contextutils.ErrTokenExpired, http.StatusUnauthorized, false},
		{"ai off", contextutils.WrapError(contextutils.ErrAIProviderUnavailable, "disabled"), http.StatusServiceUnavailable, false},
		{"rate limited", contextutils.ErrRateLimit, http.StatusTooManyRequests, false},
		{"plain error", errors.New("pq: connection refused"), http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			HandleAppError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
			assert.NotEmpty(t, body["code"])
			_, hasDetails := body["details"]
			assert.Equal(t, tt.wantDetails, hasDetails)
			assert.NotContains(t, w.Body.String(), "pq:")
		})
	}
}

func TestHandleAppError_AcceptLanguage(t *testing.T) {
	gin.SetMode(gin.TestMode)

	render := func(lang string, err error) map[string]interface{} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set("Accept-Language", lang)
		HandleAppError(c, err)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body
	}

	assert.Equal(t, "రికార్డు కనుగొనబడలేదు", render("te-IN,te;q=0.9", contextutils.ErrRecordNotFound)["error"])
	assert.Equal(t, contextutils.ErrRecordNotFound.Message, render("en-US", contextutils.ErrRecordNotFound)["error"])
	assert.Equal(t, contextutils.ErrRateLimit.Message, render("te", contextutils.ErrRateLimit)["error"])
}
