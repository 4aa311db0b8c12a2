package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"ledgerbot/pkg/errors"
)

type Config struct {
	App           AppConfig
	Telegram      TelegramConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Quotes        QuotesConfig
	Workers       WorkerConfig
	API           APIConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"ledgerbot"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	// ChatID restricts the bot to a single channel; 0 accepts all chats
	ChatID         int64 `envconfig:"TELEGRAM_CHAT_ID"`
	UpdateTimeout  int   `envconfig:"TELEGRAM_UPDATE_TIMEOUT" default:"60"`
	RateLimitRate  int   `envconfig:"TELEGRAM_RATE_LIMIT_RATE" default:"20"`
	RateLimitBurst int   `envconfig:"TELEGRAM_RATE_LIMIT_BURST" default:"30"`
}

type PostgresConfig struct {
	// Host empty means no database is configured and the in-memory
	// row store is used instead
	Host     string `envconfig:"POSTGRES_HOST"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"ledgerbot"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"ledgerbot"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

func (c PostgresConfig) Enabled() bool {
	return c.Host != ""
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	// Host empty disables the quote cache
	Host     string `envconfig:"REDIS_HOST"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type QuotesConfig struct {
	BaseURL string `envconfig:"QUOTES_BASE_URL" required:"true"`
	APIKey  string `envconfig:"QUOTES_API_KEY"`
	// Timeout bounds a single quote lookup so a hung provider cannot
	// stall a refresh cycle or a reply
	Timeout        time.Duration `envconfig:"QUOTES_TIMEOUT" default:"5s"`
	RateLimitRate  int           `envconfig:"QUOTES_RATE_LIMIT_RATE" default:"5"`
	RateLimitBurst int           `envconfig:"QUOTES_RATE_LIMIT_BURST" default:"10"`
	CacheTTL       time.Duration `envconfig:"QUOTES_CACHE_TTL" default:"1m"`
}

// WorkerConfig contains intervals for background workers
type WorkerConfig struct {
	// MarkRefreshInterval is how often open positions are re-marked
	// against live quotes
	MarkRefreshInterval time.Duration `envconfig:"WORKER_MARK_REFRESH_INTERVAL" default:"15m"`
	MarkRefreshEnabled  bool          `envconfig:"WORKER_MARK_REFRESH_ENABLED" default:"true"`
}

type APIConfig struct {
	Port    int    `envconfig:"API_PORT" default:"8000"`
	Version string `envconfig:"API_VERSION" default:"dev"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
