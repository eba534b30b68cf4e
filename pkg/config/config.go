package config

import "fmt"

// Config holds runtime configuration for the classifieds bot.
type Config struct {
	AppEnv string `mapstructure:"-"`

	App       AppConfig       `mapstructure:"app"`
	Bot       BotConfig       `mapstructure:"bot" validate:"required"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis" validate:"required"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Payments  PaymentsConfig  `mapstructure:"payments"`
}

// AppConfig carries application-wide identifiers.
type AppConfig struct {
	Name string `mapstructure:"name"`
}

// BotConfig configures the Telegram transport.
type BotConfig struct {
	Token          string `mapstructure:"token" validate:"required"`
	FeedChatID     int64  `mapstructure:"feed_chat_id" validate:"required"`
	PollTimeoutSec int    `mapstructure:"poll_timeout_sec"`
	AdminIDs       []int64 `mapstructure:"admin_ids"`
}

// ServerConfig configures the auxiliary HTTP server (metrics, health).
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     string `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
	Name     string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
}

// GetDBConnectionString returns PostgreSQL DSN based on config values.
func (c DatabaseConfig) GetDBConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		sslMode,
	)
}

// RedisConfig configures the Redis connection used for sessions and locks.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggerConfig configures log output.
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SentryConfig configures error reporting.
type SentryConfig struct {
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// Enabled reports whether Sentry reporting is configured.
func (c SentryConfig) Enabled() bool {
	return c.DSN != ""
}

// SchedulerConfig configures job scheduling behavior.
type SchedulerConfig struct {
	Timezone       string `mapstructure:"timezone"`
	SessionTTLMin  int    `mapstructure:"session_ttl_min"`
	CleanupSeconds int    `mapstructure:"cleanup_seconds"`
}

// RateLimitConfig bounds per-user update throughput.
type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
}

// PaymentsConfig configures the Telegram payments provider.
type PaymentsConfig struct {
	ProviderToken string `mapstructure:"provider_token"`
	Currency      string `mapstructure:"currency"`
}
