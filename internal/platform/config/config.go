package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	pstrings "portal/pkg/platform/strings"
)

// Config is the process configuration, populated from environment variables.
type Config struct {
	Server   Server
	Redis    RedisConfig
	Postgres PostgresConfig
	Identity IdentityConfig
	Google   GoogleConfig
	Chat     ChatConfig
	Kafka    KafkaConfig
	Tracing  TracingConfig
	Limits   RateLimitConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"PORTAL_ADDR" envDefault:":8080"`
	BaseURL         string        `env:"NEXT_PUBLIC_BASE_URL" envDefault:"https://next-app-i18n-starter.vercel.app"`
	Locales         []string      `env:"PORTAL_LOCALES" envSeparator:"," envDefault:"en,es"`
	DefaultLocale   string        `env:"PORTAL_DEFAULT_LOCALE" envDefault:"en"`
	ClientKeySecret string        `env:"PORTAL_CLIENT_KEY_SECRET" envDefault:"dev-secret-key-change-in-production"`
	ClientKeyTTL    time.Duration `env:"PORTAL_CLIENT_KEY_TTL" envDefault:"720h"`
	SecureCookies   bool          `env:"PORTAL_SECURE_COOKIES" envDefault:"false"`
	SessionIdleTTL  time.Duration `env:"PORTAL_SESSION_IDLE_TTL" envDefault:"30m"`
	ShutdownTimeout time.Duration `env:"PORTAL_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"PORTAL_LOG_LEVEL" envDefault:"info"`
}

// RedisConfig configures the optional Redis backend. An empty URL keeps every
// Redis-capable store in memory.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// PostgresConfig configures the optional Postgres backend for accounts and profiles.
type PostgresConfig struct {
	DSN          string        `env:"DATABASE_URL"`
	MaxOpenConns int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLife  time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// IdentityConfig tunes the local identity provider.
type IdentityConfig struct {
	MinPasswordLength int           `env:"IDENTITY_MIN_PASSWORD_LENGTH" envDefault:"6"`
	MaxFailedAttempts int           `env:"IDENTITY_MAX_FAILED_ATTEMPTS" envDefault:"5"`
	AttemptWindow     time.Duration `env:"IDENTITY_ATTEMPT_WINDOW" envDefault:"15m"`
	ResetTokenTTL     time.Duration `env:"IDENTITY_RESET_TOKEN_TTL" envDefault:"1h"`
	ResetURL          string        `env:"IDENTITY_RESET_URL" envDefault:"http://localhost:8080/reset-password"`
}

// GoogleConfig enables Google social sign-in when all fields are set.
type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
}

// Enabled reports whether Google sign-in is fully configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RedirectURL != ""
}

// ChatConfig configures the chat widget backend.
type ChatConfig struct {
	APIKey string `env:"GEMINI_API_KEY"`
	Model  string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash-001"`
}

// KafkaConfig enables the Kafka audit publisher when brokers are set.
type KafkaConfig struct {
	Brokers          []string `env:"KAFKA_BROKERS" envSeparator:","`
	AuditTopic       string   `env:"KAFKA_AUDIT_TOPIC" envDefault:"portal.audit"`
	AuditPartitions  int32    `env:"KAFKA_AUDIT_PARTITIONS" envDefault:"3"`
	AuditReplication int16    `env:"KAFKA_AUDIT_REPLICATION" envDefault:"1"`
}

// RateLimitConfig sets per-IP request budgets. A zero request count disables
// that class.
type RateLimitConfig struct {
	Disabled     bool          `env:"RATE_LIMIT_DISABLED" envDefault:"false"`
	ChatRequests int           `env:"RATE_LIMIT_CHAT_REQUESTS" envDefault:"20"`
	ChatWindow   time.Duration `env:"RATE_LIMIT_CHAT_WINDOW" envDefault:"1m"`
	AuthRequests int           `env:"RATE_LIMIT_AUTH_REQUESTS" envDefault:"300"`
	AuthWindow   time.Duration `env:"RATE_LIMIT_AUTH_WINDOW" envDefault:"1m"`
}

// TracingConfig enables OTLP trace export when Endpoint is set.
type TracingConfig struct {
	Endpoint    string `env:"PORTAL_OTEL_ENDPOINT"`
	Enabled     bool   `env:"PORTAL_OTEL_ENABLED" envDefault:"true"`
	ServiceName string `env:"PORTAL_OTEL_SERVICE_NAME" envDefault:"portal"`
}

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Server.Locales = pstrings.DedupeFold(cfg.Server.Locales)
	cfg.Kafka.Brokers = pstrings.DedupeAndTrim(cfg.Kafka.Brokers)
	if len(cfg.Server.Locales) == 0 {
		return Config{}, fmt.Errorf("PORTAL_LOCALES must list at least one locale")
	}
	return cfg, nil
}
