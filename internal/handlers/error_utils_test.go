package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	contextutils "telugulearn/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandleAppError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", contextutils.WrapError(contextutils.ErrRecordNotFound, "word not found"), http.StatusNotFound, "RECORD_NOT_FOUND"},
		{"duplicate", contextutils.WrapError(contextutils.ErrRecordExists, "username taken"), http.StatusConflict, "RECORD_ALREADY_EXISTS"},
		{"prerequisite", contextutils.WrapError(contextutils.ErrPrerequisiteNotMet, "locked"), http.StatusForbidden, "PREREQUISITE_NOT_MET"},
		{"ai unconfigured", contextutils.WrapError(contextutils.ErrAIProviderUnavailable, "no provider"), http.StatusServiceUnavailable, "AI_PROVIDER_UNAVAILABLE"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/test", func(c *gin.Context) { HandleAppError(c, tt.err) })

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/test", nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeBody(t, w)["code"])
		})
	}
}

func TestHandleAppError_HidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/test", func(c *gin.Context) {
		HandleAppError(c, contextutils.WrapError(errors.New("pq: relation \"users\" does not exist"), "failed to load user"))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "relation")
	assert.NotContains(t, decodeBody(t, w), "details")
}

func TestBindJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)

	type payload struct {
		Title       string `json:"title" binding:"required"`
		TargetValue int    `json:"target_value" binding:"required,min=1"`
	}

	tests := []struct {
		name    string
		body    string
		status  int
		code    string
		details string
	}{
		{"valid", `{"title":"Learn","target_value":3}`, http.StatusOK, "", ""},
		{"malformed", `{"title":`, http.StatusBadRequest, "INVALID_INPUT", ""},
		{"missing field", `{"target_value":3}`, http.StatusBadRequest, "VALIDATION_FAILED", "title is required"},
		{"below min", `{"title":"x","target_value":-1}`, http.StatusBadRequest, "VALIDATION_FAILED", "target_value must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/test", func(c *gin.Context) {
				var req payload
				if !bindJSON(c, &req) {
					return
				}
				respondOK(c, "ok", req)
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/test", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			body := decodeBody(t, w)
			if tt.code != "" {
				assert.Equal(t, tt.code, body["code"])
			}
			if tt.details != "" {
				assert.Contains(t, body["details"], tt.details)
			}
		})
	}
}

func TestParseIDParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var got int
	r.GET("/words/:id", func(c *gin.Context) {
		id, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		got = id
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/words/42", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 42, got)

	for _, bad := range []string{"abc", "0", "-3"} {
		w = httptest.NewRecorder()
		req, _ = http.NewRequest("GET", "/words/"+bad, nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestRespond_Envelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/test", func(c *gin.Context) { respondCreated(c, "Goal created", gin.H{"id": 7}) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	body := decodeBody(t, w)
	assert.Equal(t, "Goal created", body["message"])
	assert.Equal(t, map[string]interface{}{"id": float64(7)}, body["data"])
}
