package cache

import (
	"context"
	"testing"

	"telugulearn/internal/config"
	"telugulearn/internal/models"
	"telugulearn/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", false},
		{"valid-with-db", "redis://localhost:6379/0", false},
		{"wrong-scheme", "http://localhost:6379", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestNew_NoURLBypassesCache(t *testing.T) {
	c, err := New(context.Background(), config.RedisConfig{}, observability.NewNopLogger())
	require.NoError(t, err)
	assert.Nil(t, c)

	// A nil cache is usable and always misses
	var lc LeaderboardCache = c
	_, ok := lc.GetLeaderboard(context.Background(), models.PeriodAll)
	assert.False(t, ok)
	lc.SetLeaderboard(context.Background(), models.PeriodAll, nil)
	lc.InvalidateLeaderboards(context.Background())
	assert.NoError(t, c.HealthCheck(context.Background()))
	assert.NoError(t, c.Close())
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	_, err := New(t.Context(), config.RedisConfig{URL: "redis://localhost:59999"}, observability.NewNopLogger())
	assert.Error(t, err)
}
