// Package config reads client and fake backend settings from the environment.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application-level configuration
type Config struct {
	// Backend
	APIURL      string
	AccessToken string
	HTTPTimeout time.Duration

	// Feed cache and live updates; empty disables them
	RedisURL     string
	RabbitMQURL  string
	FeedCacheTTL time.Duration

	// Fake backend
	FakeBackendAddr string
	PrivateKeyPath  string
	PublicKeyPath   string
	TokenIssuer     string
}

// Load reads .env.local and .env when present, then the environment.
func Load() *Config {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from environment variables or falls back to defaults
func FromEnv() *Config {
	return &Config{
		APIURL:          getEnv("GAVEL_API_URL", "http://localhost:8080"),
		AccessToken:     os.Getenv("GAVEL_ACCESS_TOKEN"),
		HTTPTimeout:     getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		RedisURL:        os.Getenv("REDIS_URL"),
		RabbitMQURL:     os.Getenv("RABBITMQ_URL"),
		FeedCacheTTL:    getEnvDuration("FEED_CACHE_TTL", 30*time.Second),
		FakeBackendAddr: getEnv("FAKE_BACKEND_ADDR", ":8080"),
		PrivateKeyPath:  os.Getenv("AUTH_PRIVATE_KEY_PATH"),
		PublicKeyPath:   os.Getenv("AUTH_PUBLIC_KEY_PATH"),
		TokenIssuer:     getEnv("AUTH_TOKEN_ISSUER", "gavel-auth-service"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			return d
		}
	}
	return defaultVal
}
