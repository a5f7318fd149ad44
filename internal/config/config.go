package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	// HTTP
	HTTPAddr           string `env:"HTTP_ADDR" envDefault:":8080"`
	PublicBaseURL      string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`

	// Auth
	JWTSecret string `env:"JWT_SECRET"`

	// Database
	StorageDriver  string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	PostgresDSN    string `env:"POSTGRES_DSN"`
	DBMaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`

	// Redis is optional; an empty address disables rate limiting,
	// cross-process realtime relay and the distributed scan lock.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Telegram push is optional
	TelegramToken string `env:"TELEGRAM_TOKEN"`

	// Deadline scanner
	ScanInterval     time.Duration `env:"SCAN_INTERVAL" envDefault:"6h"`
	ScanLookahead    time.Duration `env:"SCAN_LOOKAHEAD" envDefault:"72h"`
	ScanInitialDelay time.Duration `env:"SCAN_INITIAL_DELAY" envDefault:"30s"`
	ScanTimeout      time.Duration `env:"SCAN_TIMEOUT" envDefault:"5m"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres DSN is empty")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver: %s", c.StorageDriver)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("jwt secret is empty")
	}

	if c.ScanInterval < time.Minute {
		return fmt.Errorf("scan interval too small: %v", c.ScanInterval)
	}

	if c.ScanLookahead <= 0 {
		return fmt.Errorf("scan lookahead must be positive: %v", c.ScanLookahead)
	}

	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	return nil
}

func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}
