package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// MemoryDatabase as DATABASE_URL selects the in-process store.
const MemoryDatabase = "memory"

// Config holds all configuration for the application
type Config struct {
	DatabaseURL      string
	AuthSecret       string
	TelegramToken    string
	RedisURL         string
	LogLevel         string
	PrometheusPort   string
	Port             string
	MigrationsPath   string
	CORSOrigins      []string
	ReminderInterval time.Duration
	ReminderLead     time.Duration
	Timezone         *time.Location
	Pool             PoolOptions
}

// Load reads an optional .env file and then loads configuration from
// environment variables.
func Load() (*Config, error) {
	// A missing .env is fine, the environment may be set by the host.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv loads configuration from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		PrometheusPort: getEnvOrDefault("PROMETHEUS_PORT", "9090"),
		Port:           getEnvOrDefault("PORT", "8080"),
		MigrationsPath: getEnvOrDefault("MIGRATIONS_PATH", "migrations"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		RedisURL:       os.Getenv("REDIS_URL"),
		CORSOrigins:    splitList(getEnvOrDefault("CORS_ORIGINS", "*")),
	}

	interval, err := time.ParseDuration(getEnvOrDefault("REMINDER_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("REMINDER_INTERVAL is not a valid duration: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("REMINDER_INTERVAL must be positive")
	}
	cfg.ReminderInterval = interval

	lead, err := time.ParseDuration(getEnvOrDefault("REMINDER_LEAD", "24h"))
	if err != nil || lead <= 0 {
		return nil, fmt.Errorf("REMINDER_LEAD must be a positive duration")
	}
	cfg.ReminderLead = lead

	loc, err := time.LoadLocation(getEnvOrDefault("TIMEZONE", "Europe/Stockholm"))
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE is not a known location: %w", err)
	}
	cfg.Timezone = loc

	cfg.Pool = PoolOptions{MaxLifetime: 5 * time.Minute}
	if cfg.Pool.MaxOpen, err = getIntOrDefault("DB_MAX_OPEN_CONNS", 25); err != nil {
		return nil, err
	}
	if cfg.Pool.MaxIdle, err = getIntOrDefault("DB_MAX_IDLE_CONNS", 5); err != nil {
		return nil, err
	}

	// Required environment variables
	if cfg.DatabaseURL = os.Getenv("DATABASE_URL"); cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if cfg.AuthSecret = os.Getenv("AUTH_SECRET"); cfg.AuthSecret == "" {
		return nil, fmt.Errorf("AUTH_SECRET environment variable is required")
	}

	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
