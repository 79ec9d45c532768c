//go:build integration

package services

import (
	"context"
	"database/sql"
	"testing"

	"telugulearn/internal/config"
	"telugulearn/internal/database"
	"telugulearn/internal/models"

	"github.com/stretchr/testify/require"
)

const integrationPassword = "Sup3rSecret"

func newIntegrationConfig() *config.Config {
	return &config.Config{
		IsTest: true,
		Server: config.ServerConfig{AppBaseURL: "http://localhost:3000"},
		Auth: config.AuthConfig{
			JWTSecret:       testSecret,
			Issuer:          config.DefaultTokenIssuer,
			AccessTokenTTL:  config.DefaultAccessTokenTTL,
			RefreshTokenTTL: config.DefaultRefreshTokenTTL,
			ResetTokenTTL:   config.DefaultResetTokenTTL,
		},
		Gamification: config.GamificationConfig{
			DefaultPoints:    config.DefaultActivityPoints,
			ActivityPoints:   map[string]int{models.ActivityQuiz: 20},
			LeaderboardLimit: config.DefaultLeaderboardLimit,
			ChallengeTemplates: []config.ChallengeTemplate{
				{Title: "Chat a lot", ActivityType: models.ActivityChat, Target: 100, BonusPoints: 1},
			},
		},
	}
}

func setupIntegrationDB(t *testing.T) (*sql.DB, *config.Config) {
	t.Helper()
	return database.SetupTestDB(t), newIntegrationConfig()
}

func registerTestUser(t *testing.T, db *sql.DB, cfg *config.Config, username string) *models.User {
	t.Helper()
	users := NewUserServiceWithLogger(db, cfg, createTestLogger())
	user, err := users.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: integrationPassword,
	})
	require.NoError(t, err)
	return user
}
