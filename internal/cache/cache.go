// Package cache wraps the optional Redis client used to cache leaderboards.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"telugulearn/internal/config"
	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	contextutils "telugulearn/internal/utils"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

const leaderboardKeyPrefix = "telugulearn:leaderboard:"

// LeaderboardCache stores fully ranked leaderboards per period. A nil
// *Cache is a valid LeaderboardCache that never hits.
type LeaderboardCache interface {
	GetLeaderboard(ctx context.Context, period models.LeaderboardPeriod) ([]models.LeaderboardEntry, bool)
	SetLeaderboard(ctx context.Context, period models.LeaderboardPeriod, entries []models.LeaderboardEntry)
	InvalidateLeaderboards(ctx context.Context)
}

// Cache wraps a Redis client.
type Cache struct {
	Client *redis.Client
	ttl    time.Duration
	logger *observability.Logger
}

var _ LeaderboardCache = (*Cache)(nil)

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "invalid cache URL: "+err.Error())
	}
	return opts, nil
}

// New connects to Redis. It returns (nil, nil) when no URL is configured so
// the cache is simply bypassed.
func New(ctx context.Context, cfg config.RedisConfig, logger *observability.Logger) (*Cache, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.DialTimeout = config.RedisDialTimeout
	opts.ReadTimeout = config.RedisIOTimeout
	opts.WriteTimeout = config.RedisIOTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, contextutils.WrapError(contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeServiceUnavailable, contextutils.SeverityWarn,
			"cache unavailable", "", err), "pinging cache")
	}

	ttl := cfg.LeaderboardTTL
	if ttl <= 0 {
		ttl = config.DefaultLeaderboardCacheTTL
	}
	return &Cache{Client: client, ttl: ttl, logger: logger}, nil
}

// Close shuts down the cache client.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.Client.Close()
}

// HealthCheck verifies the cache connection is alive.
func (c *Cache) HealthCheck(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.Client.Ping(ctx).Err()
}

func leaderboardKey(period models.LeaderboardPeriod) string {
	return leaderboardKeyPrefix + string(period)
}

// GetLeaderboard returns a cached leaderboard for period
func (c *Cache) GetLeaderboard(ctx context.Context, period models.LeaderboardPeriod) ([]models.LeaderboardEntry, bool) {
	if c == nil {
		return nil, false
	}
	ctx, span := observability.TraceGamificationFunction(ctx, "cache.GetLeaderboard", observability.AttributePeriod(string(period)))
	defer span.End()

	raw, err := c.Client.Get(ctx, leaderboardKey(period)).Bytes()
	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, false
	}
	if err != nil {
		c.logger.Warn(ctx, "Leaderboard cache read failed", map[string]interface{}{"error": err.Error()})
		return nil, false
	}

	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		c.logger.Warn(ctx, "Discarding corrupt leaderboard cache entry", map[string]interface{}{"period": string(period)})
		return nil, false
	}
	span.SetAttributes(attribute.Bool("cache.hit", true))
	return entries, true
}

// SetLeaderboard stores entries for period with the configured TTL
func (c *Cache) SetLeaderboard(ctx context.Context, period models.LeaderboardPeriod, entries []models.LeaderboardEntry) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := c.Client.Set(ctx, leaderboardKey(period), raw, c.ttl).Err(); err != nil {
		c.logger.Warn(ctx, "Leaderboard cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

// InvalidateLeaderboards drops every cached period
func (c *Cache) InvalidateLeaderboards(ctx context.Context) {
	if c == nil {
		return
	}
	keys := []string{
		leaderboardKey(models.PeriodAll),
		leaderboardKey(models.PeriodWeekly),
		leaderboardKey(models.PeriodMonthly),
	}
	if err := c.Client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn(ctx, "Leaderboard cache invalidation failed", map[string]interface{}{"error": err.Error()})
	}
}
