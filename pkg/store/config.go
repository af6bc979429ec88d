package store

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds database configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadConfigFromEnv reads database configuration from the environment.
// DB_PASSWORD is required; everything else has a sensible default.
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		Host:            envOr("DB_HOST", "localhost"),
		User:            envOr("DB_USER", "carebridge"),
		Password:        os.Getenv("DB_PASSWORD"),
		Database:        envOr("DB_NAME", "carebridge"),
		SSLMode:         envOr("DB_SSLMODE", "disable"),
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}

	port := envOr("DB_PORT", "5432")
	p, err := strconv.Atoi(port)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_PORT %q: %w", port, err)
	}
	cfg.Port = p

	if cfg.Password == "" {
		return Config{}, fmt.Errorf("DB_PASSWORD is required")
	}
	return cfg, nil
}

func envOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
