package handlers

import (
	"net/http"
	"testing"

	"telugulearn/internal/models"
	"telugulearn/internal/services"
	contextutils "telugulearn/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGamificationHandler_LeaderboardIsPublic(t *testing.T) {
	api := newTestAPI(t)
	entries := []models.LeaderboardEntry{
		{Rank: 1, UserID: 2, Username: "a", Points: 50},
		{Rank: 2, UserID: 5, Username: "b", Points: 50},
	}
	api.gamification.On("Leaderboard", mock.Anything, models.PeriodWeekly, 5).Return(entries, nil).Once()

	w := api.do(t, http.MethodGet, "/api/gamification/leaderboard?period=Weekly&limit=5", "", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Period  string                    `json:"period"`
		Entries []models.LeaderboardEntry `json:"entries"`
	}
	envelope(t, w, &resp)
	assert.Equal(t, "weekly", resp.Period)
	assert.Equal(t, entries, resp.Entries)
}

func TestGamificationHandler_LeaderboardBadInput(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/gamification/leaderboard?limit=ten", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	api.gamification.On("Leaderboard", mock.Anything, models.LeaderboardPeriod("yearly"), 0).
		Return(nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown leaderboard period %q", "yearly")).Once()
	w = api.do(t, http.MethodGet, "/api/gamification/leaderboard?period=yearly", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGamificationHandler_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{
		"/api/gamification/badges/me",
		"/api/gamification/stats",
		"/api/gamification/daily-challenge",
		"/api/gamification/achievements",
		"/api/gamification/leaderboard/rank",
	} {
		w := api.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestGamificationHandler_RecordActivity(t *testing.T) {
	api := newTestAPI(t)
	score := 80
	outcome := &models.ActivityOutcome{
		Activity:      models.ActivityLog{ID: 11, UserID: testUserID, ActivityType: "quiz", Points: 20},
		PointsAwarded: 20,
		PointsTotal:   120,
		StreakCount:   3,
		NewBadges:     []models.Badge{{ID: 1, Name: "First Steps"}},
	}

	api.gamification.On("RecordActivity", mock.Anything, testUserID, mock.MatchedBy(func(in services.ActivityInput) bool {
		return in.Type == "quiz" && in.Score != nil && *in.Score == score && in.DurationSeconds == 120
	})).Return(outcome, nil).Once()

	w := api.do(t, http.MethodPost, "/api/gamification/activity", testUserToken, map[string]interface{}{
		"activity_type":    " Quiz ",
		"score":            score,
		"duration_seconds": 120,
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var got models.ActivityOutcome
	envelope(t, w, &got)
	assert.Equal(t, 120, got.PointsTotal)
	require.Len(t, got.NewBadges, 1)
	assert.Equal(t, "First Steps", got.NewBadges[0].Name)
}

func TestGamificationHandler_RecordActivityRejects(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name string
		body map[string]interface{}
		code contextutils.ErrorCode
	}{
		{"server only type", map[string]interface{}{"activity_type": "daily_challenge"}, contextutils.ErrorCodeInvalidInput},
		{"missing type", map[string]interface{}{"score": 10}, contextutils.ErrorCodeValidationFailed},
		{"score above 100", map[string]interface{}{"activity_type": "quiz", "score": 101}, contextutils.ErrorCodeValidationFailed},
		{"negative duration", map[string]interface{}{"activity_type": "quiz", "duration_seconds": -1}, contextutils.ErrorCodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodPost, "/api/gamification/activity", testUserToken, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, string(tt.code), errorCode(t, w))
		})
	}
}

func TestGamificationHandler_DailyChallenge(t *testing.T) {
	api := newTestAPI(t)
	status := &models.DailyChallengeStatus{
		Challenge: models.DailyChallenge{ID: 4, Title: "Practice five words", ActivityType: "vocabulary_practice", Target: 5, BonusPoints: 25},
		Progress:  2,
	}
	api.gamification.On("TodayChallenge", mock.Anything, testUserID).Return(status, nil).Once()
	api.gamification.On("CompleteDailyChallenge", mock.Anything, testUserID).
		Return(nil, contextutils.WrapError(contextutils.ErrChallengeCompleted, "already completed today")).Once()

	w := api.do(t, http.MethodGet, "/api/gamification/daily-challenge", testUserToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.DailyChallengeStatus
	envelope(t, w, &got)
	assert.Equal(t, 2, got.Progress)
	assert.False(t, got.Completed)

	w = api.do(t, http.MethodPost, "/api/gamification/daily-challenge/complete", testUserToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(contextutils.ErrorCodeChallengeCompleted), errorCode(t, w))
}

func TestGamificationHandler_Stats(t *testing.T) {
	api := newTestAPI(t)
	api.gamification.On("Stats", mock.Anything, testUserID).Return(&models.UserStats{
		UserID:       testUserID,
		PointsTotal:  300,
		StreakCount:  4,
		BadgesEarned: 2,
		Rank:         1,
	}, nil).Once()

	w := api.do(t, http.MethodGet, "/api/gamification/stats", testUserToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats models.UserStats
	envelope(t, w, &stats)
	assert.Equal(t, 300, stats.PointsTotal)
	assert.Equal(t, 1, stats.Rank)
}
