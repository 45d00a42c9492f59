package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	TelegramToken    string
	TelegramEndpoint string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	MigrationsDir    string

	BatchTime    string
	BatchSize    int
	Timezone     string
	MediaRoot    string
	DefaultImage string

	PollTimeout  time.Duration
	PollInterval time.Duration
	HTTPTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	DedupTTL      time.Duration

	MetricsAddr string
	LogLevel    string
}

var ErrMissingEnv = errors.New("missing required environment variable")

// Load reads the process environment, after merging in a .env file when one
// is present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		zap.L().Debug("load .env file", zap.Error(err))
	}

	cfg := &Config{
		TelegramToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramEndpoint: getEnv("TELEGRAM_API_ENDPOINT", ""),

		PostgresHost:     getEnv("POSTGRES_HOST", ""),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "vocabot"),
		MigrationsDir:    getEnv("MIGRATIONS_DIR", "migrations"),

		BatchTime:    getEnv("BATCH_TIME", "10:00"),
		Timezone:     getEnv("TIMEZONE", "UTC"),
		MediaRoot:    getEnv("MEDIA_ROOT", "media"),
		DefaultImage: getEnv("DEFAULT_IMAGE", "media/img/default.jpg"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		MetricsAddr: getEnv("METRICS_ADDR", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.BatchSize, err = getInt("BATCH_SIZE", 5); err != nil {
		return nil, err
	}
	if cfg.PollTimeout, err = getDuration("POLL_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = getDuration("POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.DedupTTL, err = getDuration("DEDUP_TTL", 24*time.Hour); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateBot checks what the bot process cannot start without.
func (c *Config) ValidateBot() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("%w: TELEGRAM_BOT_TOKEN", ErrMissingEnv)
	}
	return c.ValidateDB()
}

func (c *Config) ValidateDB() error {
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: POSTGRES_HOST", ErrMissingEnv)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	return nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s=%q: %w", key, value, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s=%q: %w", key, value, err)
	}
	return d, nil
}
