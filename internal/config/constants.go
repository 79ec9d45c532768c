package config

import "time"

// Timeout constants
const (
	DefaultHTTPTimeout    = 60 * time.Second
	AIRequestTimeout      = 2 * time.Minute
	AIShutdownTimeout     = 30 * time.Second
	WorkerShutdownTimeout = 30 * time.Second
	ServerShutdownTimeout = 30 * time.Second
	RedisDialTimeout      = 5 * time.Second
	RedisIOTimeout        = 3 * time.Second

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute
)

// Auth defaults
const (
	DefaultTokenIssuer     = "telugulearn"
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
	DefaultResetTokenTTL   = time.Hour
	MinJWTSecretLength     = 32
)

// Server defaults
const (
	DefaultServerPort = "8080"
	DefaultWorkerPort = "8081"
)

// Gamification defaults
const (
	DefaultActivityPoints      = 10
	DefaultLeaderboardLimit    = 10
	MaxLeaderboardLimit        = 100
	DefaultLeaderboardCacheTTL = time.Minute
)

// AI defaults
const (
	DefaultAIMaxConcurrent = 10
	DefaultAIMaxPerUser    = 2
	DefaultChatHistory     = 10

	// Polling interval used while draining in-flight AI requests on shutdown
	AIShutdownPollInterval = 100 * time.Millisecond
)

// Worker defaults
const (
	DefaultTokenPurgeMinutes         = 60
	DefaultNotificationRetentionDays = 30
	WorkerHeartbeatInterval          = 30 * time.Second
	DefaultWorkerMaxHistory          = 100
	DefaultWorkerMaxActivityLogs     = 200
)

// Security configuration constants
const (
	// Content Security Policy for the JSON API
	DefaultCSP = "default-src 'none'; frame-ancestors 'none'"
)
