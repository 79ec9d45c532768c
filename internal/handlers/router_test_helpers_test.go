package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"telugulearn/internal/config"
	"telugulearn/internal/observability"
	"telugulearn/internal/services"
	contextutils "telugulearn/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testUserToken  = "user-token"
	testAdminToken = "admin-token"
	testUserID     = 7
	testAdminID    = 1
)

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

type testAPI struct {
	router          *gin.Engine
	auth            *MockAuthService
	users           *MockUserService
	vocabulary      *MockVocabularyService
	chapters        *MockChapterService
	gamification    *MockGamificationService
	personalization *MockPersonalizationService
	analytics       *MockAnalyticsService
	notifications   *MockNotificationService
	ai              *MockAIService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIWithPinger(t, stubPinger{})
}

func newTestAPIWithPinger(t *testing.T, db Pinger) *testAPI {
	t.Helper()
	api := &testAPI{
		auth:            &MockAuthService{},
		users:           &MockUserService{},
		vocabulary:      &MockVocabularyService{},
		chapters:        &MockChapterService{},
		gamification:    &MockGamificationService{},
		personalization: &MockPersonalizationService{},
		analytics:       &MockAnalyticsService{},
		notifications:   &MockNotificationService{},
		ai:              &MockAIService{},
	}

	api.auth.On("ParseAccessToken", testUserToken).Return(testClaims(testUserID, "ravi", false), nil).Maybe()
	api.auth.On("ParseAccessToken", testAdminToken).Return(testClaims(testAdminID, "admin", true), nil).Maybe()
	api.auth.On("ParseAccessToken", mock.Anything).
		Return(nil, contextutils.WrapError(contextutils.ErrTokenInvalid, "bad token")).Maybe()

	api.router = NewRouter(
		&config.Config{},
		api.users,
		api.auth,
		api.vocabulary,
		api.chapters,
		api.gamification,
		api.personalization,
		api.analytics,
		api.notifications,
		api.ai,
		db,
		observability.NewNopLogger(),
	)
	gin.SetMode(gin.TestMode)

	t.Cleanup(func() {
		api.users.AssertExpectations(t)
		api.vocabulary.AssertExpectations(t)
		api.chapters.AssertExpectations(t)
		api.gamification.AssertExpectations(t)
		api.personalization.AssertExpectations(t)
		api.analytics.AssertExpectations(t)
		api.notifications.AssertExpectations(t)
		api.ai.AssertExpectations(t)
	})
	return api
}

func testClaims(userID int, username string, admin bool) *services.AccessClaims {
	return &services.AccessClaims{
		Username:         username,
		IsAdmin:          admin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: strconv.Itoa(userID)},
	}
}

// do sends a request with an optional JSON body and bearer token
func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// envelope decodes {"message","data"} with data into out
func envelope(t *testing.T, w *httptest.ResponseRecorder, out interface{}) string {
	t.Helper()
	var body struct {
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(body.Data, out))
	}
	return body.Message
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	code, _ := decodeBody(t, w)["code"].(string)
	return code
}
