package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	API   APIConfig
	Poll  PollConfig
	Store StoreConfig
}

type APIConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type PollConfig struct {
	Interval time.Duration
}

type StoreConfig struct {
	Enabled bool
	Path    string
}

func Load() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: getEnv("REZZY_API_BASE_URL", "http://localhost:8080"),
			Token:   getEnv("REZZY_API_TOKEN", ""),
			Timeout: time.Duration(getEnvInt("REZZY_API_TIMEOUT_SECONDS", 15)) * time.Second,
		},
		Poll: PollConfig{
			Interval: time.Duration(getEnvInt("REZZY_POLL_INTERVAL_MS", 5000)) * time.Millisecond,
		},
		Store: StoreConfig{
			Enabled: getEnvBool("REZZY_STORE_ENABLED", true),
			Path:    getEnv("REZZY_STORE_PATH", "file::memory:?cache=shared"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
