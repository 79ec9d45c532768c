package handlers

import (
	"net/http"
	"testing"
	"time"

	"telugulearn/internal/models"
	"telugulearn/internal/services"
	contextutils "telugulearn/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testTokens() *models.TokenPair {
	return &models.TokenPair{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(15 * time.Minute),
	}
}

func TestAuthHandler_Register(t *testing.T) {
	api := newTestAPI(t)
	user := &models.User{ID: 3, Username: "lakshmi", Email: "l@example.com", IsActive: true}

	api.users.On("Register", mock.Anything, services.RegisterInput{
		Username: "lakshmi",
		Email:    "l@example.com",
		Password: "Secret123",
		Timezone: "Asia/Kolkata",
	}).Return(user, nil).Once()
	api.auth.On("IssueTokens", mock.Anything, user).Return(testTokens(), nil).Once()

	w := api.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "lakshmi",
		"email":    "l@example.com",
		"password": "Secret123",
		"timezone": "Asia/Kolkata",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		User   models.User      `json:"user"`
		Tokens models.TokenPair `json:"tokens"`
	}
	assert.Equal(t, "Registration successful", envelope(t, w, &resp))
	assert.Equal(t, 3, resp.User.ID)
	assert.Equal(t, "refresh", resp.Tokens.RefreshToken)
}

func TestAuthHandler_RegisterDuplicateUsernameWinsOverBadEmail(t *testing.T) {
	api := newTestAPI(t)

	api.users.On("Register", mock.Anything, mock.MatchedBy(func(in services.RegisterInput) bool {
		return in.Username == "taken" && in.Email == "not-an-email"
	})).Return(nil, contextutils.WrapError(contextutils.ErrRecordExists, "username already exists")).Once()

	w := api.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "taken",
		"email":    "not-an-email",
		"password": "weak",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(contextutils.ErrorCodeRecordExists), errorCode(t, w))
}

func TestAuthHandler_RegisterValidation(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "ab"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(contextutils.ErrorCodeValidationFailed), errorCode(t, w))
	details, _ := decodeBody(t, w)["details"].(string)
	assert.Contains(t, details, "username must be at least 3")
	assert.NotContains(t, details, "password")
}

func TestAuthHandler_RegisterDuplicateUsernameWinsOverMissingEmail(t *testing.T) {
	api := newTestAPI(t)

	api.users.On("Register", mock.Anything, mock.MatchedBy(func(in services.RegisterInput) bool {
		return in.Username == "taken" && in.Email == "" && in.Password == ""
	})).Return(nil, contextutils.WrapError(contextutils.ErrRecordExists, "username already exists")).Once()

	w := api.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "taken",
		"email":    "",
		"password": "",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(contextutils.ErrorCodeRecordExists), errorCode(t, w))
}

func TestAuthHandler_RegisterMissingEmailRejectedByService(t *testing.T) {
	api := newTestAPI(t)

	api.users.On("Register", mock.Anything, mock.MatchedBy(func(in services.RegisterInput) bool {
		return in.Username == "newbie" && in.Email == ""
	})).Return(nil, contextutils.WrapError(contextutils.ErrInvalidInput, "invalid email address")).Once()

	w := api.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "newbie",
		"password": "Secret123",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(contextutils.ErrorCodeInvalidInput), errorCode(t, w))
}

func TestAuthHandler_Login(t *testing.T) {
	api := newTestAPI(t)
	user := &models.User{ID: 7, Username: "ravi", IsActive: true}

	api.users.On("Authenticate", mock.Anything, "ravi", "Secret123").Return(user, nil).Once()
	api.users.On("Authenticate", mock.Anything, "ravi", "wrong").
		Return(nil, contextutils.WrapError(contextutils.ErrInvalidCredentials, "invalid username or password")).Once()
	api.auth.On("IssueTokens", mock.Anything, user).Return(testTokens(), nil).Once()

	w := api.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "ravi", "password": "Secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Login successful", envelope(t, w, nil))

	w = api.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "ravi", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, string(contextutils.ErrorCodeInvalidCredentials), errorCode(t, w))
}

func TestAuthHandler_RefreshAndLogout(t *testing.T) {
	api := newTestAPI(t)

	api.auth.On("Refresh", mock.Anything, "old").Return(testTokens(), nil).Once()
	api.auth.On("Refresh", mock.Anything, "revoked").
		Return(nil, contextutils.WrapError(contextutils.ErrTokenInvalid, "refresh token revoked")).Once()
	api.auth.On("Revoke", mock.Anything, "refresh").Return(nil).Once()

	w := api.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": "old"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": "revoked"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodPost, "/api/auth/logout", "", map[string]string{"refresh_token": "refresh"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPost, "/api/auth/logout", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	api.auth.AssertExpectations(t)
}

func TestAuthHandler_PasswordResetRequestAlwaysOK(t *testing.T) {
	api := newTestAPI(t)

	api.auth.On("RequestPasswordReset", mock.Anything, "ghost@example.com").
		Return(contextutils.WrapError(contextutils.ErrDatabaseQuery, "lookup failed")).Once()

	w := api.do(t, http.MethodPost, "/api/auth/password-reset/request", "", map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)
	api.auth.AssertExpectations(t)
}

func TestAuthHandler_PasswordResetConfirm(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/auth/password-reset/confirm", "", map[string]string{
		"token":        "abc",
		"new_password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	details, _ := decodeBody(t, w)["details"].(string)
	assert.Contains(t, details, "new_password does not meet the password policy")

	api.auth.On("ConfirmPasswordReset", mock.Anything, "expired", "Secret123").
		Return(contextutils.WrapError(contextutils.ErrTokenExpired, "reset token expired")).Once()
	w = api.do(t, http.MethodPost, "/api/auth/password-reset/confirm", "", map[string]string{
		"token":        "expired",
		"new_password": "Secret123",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, string(contextutils.ErrorCodeTokenExpired), errorCode(t, w))
}

func TestAuthHandler_Me(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodGet, "/api/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, string(contextutils.ErrorCodeTokenInvalid), errorCode(t, w))

	api.users.On("GetUserWithProfile", mock.Anything, testUserID).Return(&models.UserWithProfile{
		User:    models.User{ID: testUserID, Username: "ravi"},
		Profile: models.Profile{UserID: testUserID, PointsTotal: 40},
	}, nil).Once()

	w = api.do(t, http.MethodGet, "/api/auth/me", testUserToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.UserWithProfile
	envelope(t, w, &me)
	assert.Equal(t, "ravi", me.User.Username)
	assert.Equal(t, 40, me.Profile.PointsTotal)
}
