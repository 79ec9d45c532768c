// Package config handles application configuration loading from a YAML file
// with environment variable overrides.
package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	contextutils "telugulearn/internal/utils"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable holding the config path
const ConfigFileEnv = "TELUGU_CONFIG_FILE"

// ProviderConfig defines an OpenAI-compatible chat completions provider
type ProviderConfig struct {
	Name      string    `json:"name" yaml:"name"`
	Code      string    `json:"code" yaml:"code"`
	URL       string    `json:"url,omitempty" yaml:"url,omitempty"`
	APIKey    string    `json:"-" yaml:"api_key,omitempty"`
	Models    []AIModel `json:"models" yaml:"models"`
	IsDefault bool      `json:"is_default,omitempty" yaml:"is_default,omitempty"`
}

// AIModel represents an AI model configuration
type AIModel struct {
	Name      string `json:"name" yaml:"name"`
	Code      string `json:"code" yaml:"code"`
	MaxTokens int    `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// AIConfig holds activity generation and tutor chat settings
type AIConfig struct {
	Enabled        bool             `json:"enabled" yaml:"enabled"`
	Providers      []ProviderConfig `json:"providers" yaml:"providers"`
	MaxConcurrent  int              `json:"max_concurrent" yaml:"max_concurrent"`
	MaxPerUser     int              `json:"max_per_user" yaml:"max_per_user"`
	RequestTimeout time.Duration    `json:"request_timeout" yaml:"request_timeout"`
	Temperature    float64          `json:"temperature" yaml:"temperature"`
	ChatHistory    int              `json:"chat_history" yaml:"chat_history"`
}

// AuthConfig represents authentication-related configuration
type AuthConfig struct {
	JWTSecret         string        `json:"-" yaml:"jwt_secret"`
	Issuer            string        `json:"issuer" yaml:"issuer"`
	AccessTokenTTL    time.Duration `json:"access_token_ttl" yaml:"access_token_ttl"`
	RefreshTokenTTL   time.Duration `json:"refresh_token_ttl" yaml:"refresh_token_ttl"`
	ResetTokenTTL     time.Duration `json:"reset_token_ttl" yaml:"reset_token_ttl"`
	PasswordMinLength int           `json:"password_min_length" yaml:"password_min_length"`
	RequireSpecial    bool          `json:"require_special" yaml:"require_special"`
	SignupsDisabled   bool          `json:"signups_disabled" yaml:"signups_disabled"`
}

// PasswordPolicy converts the auth section into the validation policy
func (a AuthConfig) PasswordPolicy() contextutils.PasswordPolicy {
	policy := contextutils.DefaultPasswordPolicy()
	if a.PasswordMinLength > 0 {
		policy.MinLength = a.PasswordMinLength
	}
	policy.RequireSpecial = a.RequireSpecial
	return policy
}

// RedisConfig configures the optional leaderboard cache
type RedisConfig struct {
	URL            string        `json:"url" yaml:"url"`
	LeaderboardTTL time.Duration `json:"leaderboard_ttl" yaml:"leaderboard_ttl"`
}

// ChallengeTemplate is one entry in the daily challenge rotation
type ChallengeTemplate struct {
	Title        string `json:"title" yaml:"title"`
	Description  string `json:"description" yaml:"description"`
	ActivityType string `json:"activity_type" yaml:"activity_type"`
	Target       int    `json:"target" yaml:"target"`
	BonusPoints  int    `json:"bonus_points" yaml:"bonus_points"`
}

// GamificationConfig controls points and daily challenges
type GamificationConfig struct {
	ActivityPoints     map[string]int      `json:"activity_points" yaml:"activity_points"`
	DefaultPoints      int                 `json:"default_points" yaml:"default_points"`
	LeaderboardLimit   int                 `json:"leaderboard_limit" yaml:"leaderboard_limit"`
	ChallengeTemplates []ChallengeTemplate `json:"challenge_templates" yaml:"challenge_templates"`
}

// PointsFor returns the configured points for an activity type
func (g GamificationConfig) PointsFor(activityType string) int {
	if p, ok := g.ActivityPoints[activityType]; ok {
		return p
	}
	return g.DefaultPoints
}

// WorkerConfig controls the background scheduler
type WorkerConfig struct {
	StreakSweepHour   int  `json:"streak_sweep_hour" yaml:"streak_sweep_hour"`
	TokenPurgeMinutes int  `json:"token_purge_minutes" yaml:"token_purge_minutes"`
	StartPaused       bool `json:"start_paused" yaml:"start_paused"`

	// Read notifications older than this many days are deleted nightly
	NotificationRetentionDays int `json:"notification_retention_days" yaml:"notification_retention_days"`
}

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `json:"server" yaml:"server"`
	Database      DatabaseConfig      `json:"database" yaml:"database"`
	Auth          AuthConfig          `json:"auth" yaml:"auth"`
	Redis         RedisConfig         `json:"redis" yaml:"redis"`
	AI            AIConfig            `json:"ai" yaml:"ai"`
	Gamification  GamificationConfig  `json:"gamification" yaml:"gamification"`
	Worker        WorkerConfig        `json:"worker" yaml:"worker"`
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`
	Email         EmailConfig         `json:"email" yaml:"email"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port        string   `json:"port" yaml:"port"`
	WorkerPort  string   `json:"worker_port" yaml:"worker_port"`
	Debug       bool     `json:"debug" yaml:"debug"`
	LogLevel    string   `json:"log_level" yaml:"log_level"`
	AppBaseURL  string   `json:"app_base_url" yaml:"app_base_url"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`
	// MigrationsPath overrides the embedded migrations with a file:// source
	MigrationsPath string `json:"migrations_path" yaml:"migrations_path"`
	// Bootstrap administrator, created on server start when missing
	AdminUsername string `json:"admin_username" yaml:"admin_username"`
	AdminEmail    string `json:"admin_email" yaml:"admin_email"`
	AdminPassword string `json:"-" yaml:"admin_password"`
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "telugu-backend" or "telugu-worker"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"` // Default: 1.0 (100%)
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL             string        `json:"url" yaml:"url"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// EmailConfig represents email/SMTP configuration
type EmailConfig struct {
	SMTP    SMTPConfig `json:"smtp" yaml:"smtp"`
	Enabled bool       `json:"enabled" yaml:"enabled"`
}

// SMTPConfig represents SMTP server configuration
type SMTPConfig struct {
	Host        string `json:"host" yaml:"host"`
	Port        int    `json:"port" yaml:"port"`
	Username    string `json:"username" yaml:"username"`
	Password    string `json:"password" yaml:"password"`
	FromAddress string `json:"from_address" yaml:"from_address"`
	FromName    string `json:"from_name" yaml:"from_name"`
}

// NewConfig loads configuration from YAML file first, then overrides with environment variables
func NewConfig() (result0 *Config, err error) {
	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	config.overrideFromEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyDefaults fills zero values with sensible defaults
func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.WorkerPort == "" {
		c.Server.WorkerPort = DefaultWorkerPort
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = DefaultTokenIssuer
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if c.Auth.ResetTokenTTL <= 0 {
		c.Auth.ResetTokenTTL = DefaultResetTokenTTL
	}
	if c.Redis.LeaderboardTTL <= 0 {
		c.Redis.LeaderboardTTL = DefaultLeaderboardCacheTTL
	}
	if c.AI.MaxConcurrent <= 0 {
		c.AI.MaxConcurrent = DefaultAIMaxConcurrent
	}
	if c.AI.MaxPerUser <= 0 {
		c.AI.MaxPerUser = DefaultAIMaxPerUser
	}
	if c.AI.RequestTimeout <= 0 {
		c.AI.RequestTimeout = AIRequestTimeout
	}
	if c.AI.ChatHistory <= 0 {
		c.AI.ChatHistory = DefaultChatHistory
	}
	if c.Gamification.DefaultPoints <= 0 {
		c.Gamification.DefaultPoints = DefaultActivityPoints
	}
	if c.Gamification.LeaderboardLimit <= 0 {
		c.Gamification.LeaderboardLimit = DefaultLeaderboardLimit
	}
	if c.Worker.TokenPurgeMinutes <= 0 {
		c.Worker.TokenPurgeMinutes = DefaultTokenPurgeMinutes
	}
	if c.Worker.NotificationRetentionDays <= 0 {
		c.Worker.NotificationRetentionDays = DefaultNotificationRetentionDays
	}
}

// Validate checks settings that would make the server unusable
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return contextutils.WrapError(contextutils.ErrMissingRequired, "database.url is required")
	}
	if len(c.Auth.JWTSecret) < MinJWTSecretLength && !c.IsTest {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "auth.jwt_secret must be at least %d characters", MinJWTSecretLength)
	}
	if c.Worker.StreakSweepHour < 0 || c.Worker.StreakSweepHour > 23 {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "worker.streak_sweep_hour must be between 0 and 23")
	}
	return nil
}

// DefaultProvider returns the provider used for generation, or nil when none is configured
func (c *Config) DefaultProvider() *ProviderConfig {
	if len(c.AI.Providers) == 0 {
		return nil
	}
	for i := range c.AI.Providers {
		if c.AI.Providers[i].IsDefault {
			return &c.AI.Providers[i]
		}
	}
	return &c.AI.Providers[0]
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnv(c)
}

// overrideStructFromEnv recursively overrides struct fields with environment variables
func overrideStructFromEnv(v interface{}) {
	overrideStructFromEnvWithPrefix(v, "")
}

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables.
// The variable name is the upper-cased yaml tag path joined by underscores, e.g. AUTH_JWT_SECRET.
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if !field.CanSet() {
			continue
		}

		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		// time.Duration is an int64 kind, parse it with time.ParseDuration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			if envVal := os.Getenv(envKey); envVal != "" {
				if d, err := time.ParseDuration(envVal); err == nil {
					field.SetInt(int64(d))
				}
			}
			continue
		}

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal := os.Getenv(envKey); envVal != "" {
				if field.Type().Elem().Kind() == reflect.String {
					slice := strings.Split(envVal, ",")
					field.Set(reflect.ValueOf(slice))
				}
			}
		case reflect.Struct:
			if field.CanAddr() {
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), envKey)
			}
		case reflect.Ptr:
			if !field.IsNil() && field.Elem().Kind() == reflect.Struct {
				overrideStructFromEnvWithPrefix(field.Interface(), envKey)
			}
		}
	}
}

// loadConfigWithOverrides loads the config file named by TELUGU_CONFIG_FILE or config.yaml
func loadConfigWithOverrides() (result0 *Config, err error) {
	if envPath := os.Getenv(ConfigFileEnv); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	return loadConfigFromFile("config.yaml")
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
