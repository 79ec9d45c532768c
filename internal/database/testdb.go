//go:build integration

package database

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"sync"
	"testing"

	"telugulearn/internal/observability"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// Tables truncated between integration tests, children first
var testTables = []string{
	"worker_status",
	"worker_settings",
	"chat_messages",
	"generated_activities",
	"notifications",
	"learning_sessions",
	"assessments",
	"learning_goals",
	"daily_challenge_completions",
	"daily_challenges",
	"user_achievements",
	"achievements",
	"user_badges",
	"badges",
	"user_activity_log",
	"vocabulary_words",
	"chapter_progress",
	"chapter_dependencies",
	"chapters",
	"courses",
	"password_reset_tokens",
	"refresh_tokens",
	"profiles",
	"users",
}

var (
	sharedURLOnce sync.Once
	sharedURL     string
	sharedURLErr  error

	sharedContainer testcontainers.Container
)

// TestDatabaseURL returns TEST_DATABASE_URL, or starts a throwaway postgres
// container the first time it is called in a test binary.
func TestDatabaseURL(t *testing.T) string {
	t.Helper()

	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		return url
	}

	sharedURLOnce.Do(func() {
		ctx := context.Background()
		container, err := postgres.Run(ctx, "postgres:16-alpine",
			postgres.WithDatabase("telugu_test"),
			postgres.WithUsername("telugu"),
			postgres.WithPassword("telugu"),
			postgres.BasicWaitStrategies(),
		)
		if err != nil {
			sharedURLErr = err
			return
		}
		// Reaped by ryuk when the test binary exits
		sharedContainer = container
		sharedURL, sharedURLErr = container.ConnectionString(ctx, "sslmode=disable")
	})
	require.NoError(t, sharedURLErr, "failed to start postgres test container")
	return sharedURL
}

// SetupTestDB connects to the integration database, applies migrations and
// registers a cleanup that truncates every table.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := TestDatabaseURL(t)
	manager := NewManager(observability.NewNopLogger())
	db, err := manager.InitDB(url)
	require.NoError(t, err)

	CleanupTestDB(t, db)
	t.Cleanup(func() {
		CleanupTestDB(t, db)
		_ = db.Close()
	})
	return db
}

// CleanupTestDB removes all rows and resets identity sequences
func CleanupTestDB(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec("TRUNCATE TABLE " + strings.Join(testTables, ", ") + " RESTART IDENTITY CASCADE")
	require.NoError(t, err)
}
