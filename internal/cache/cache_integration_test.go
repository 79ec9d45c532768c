//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"telugulearn/internal/config"
	"telugulearn/internal/models"
	"telugulearn/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, container)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestLeaderboardCache_Integration(t *testing.T) {
	url := startRedis(t)
	ctx := context.Background()

	c, err := New(ctx, config.RedisConfig{URL: url, LeaderboardTTL: time.Minute}, observability.NewNopLogger())
	require.NoError(t, err)
	require.NotNil(t, c)
	defer c.Close()

	_, ok := c.GetLeaderboard(ctx, models.PeriodWeekly)
	assert.False(t, ok)

	entries := []models.LeaderboardEntry{{Rank: 1, UserID: 3, Username: "sita", Points: 90}}
	c.SetLeaderboard(ctx, models.PeriodWeekly, entries)

	got, ok := c.GetLeaderboard(ctx, models.PeriodWeekly)
	require.True(t, ok)
	assert.Equal(t, entries, got)

	c.InvalidateLeaderboards(ctx)
	_, ok = c.GetLeaderboard(ctx, models.PeriodWeekly)
	assert.False(t, ok)
}
