// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"os"
	"time"
)

// Config holds the settings the sync engine is wired from.
type Config struct {
	DataDir      string
	APIURL       string
	APIKey       string
	Token        string
	SyncInterval time.Duration
	LogLevel     string
	LogConsole   bool
}

// Load reads configuration from the environment. CRAGBOOK_API_URL and
// CRAGBOOK_API_KEY are required; everything else has a default. The
// bearer token may arrive later through the auth flow instead.
func Load() (*Config, error) {
	intervalStr := getEnv("CRAGBOOK_SYNC_INTERVAL", "5m")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, errors.New("invalid CRAGBOOK_SYNC_INTERVAL format")
	}

	cfg := &Config{
		DataDir:      getEnv("CRAGBOOK_DATA_DIR", "./data"),
		APIURL:       os.Getenv("CRAGBOOK_API_URL"),
		APIKey:       os.Getenv("CRAGBOOK_API_KEY"),
		Token:        os.Getenv("CRAGBOOK_TOKEN"),
		SyncInterval: interval,
		LogLevel:     getEnv("CRAGBOOK_LOG_LEVEL", "info"),
		LogConsole:   getEnv("CRAGBOOK_LOG_CONSOLE", "") != "",
	}

	if cfg.APIURL == "" {
		return nil, errors.New("CRAGBOOK_API_URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("CRAGBOOK_API_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
