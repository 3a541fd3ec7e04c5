package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"GAVEL_API_URL", "GAVEL_ACCESS_TOKEN", "HTTP_TIMEOUT", "REDIS_URL", "RABBITMQ_URL", "FEED_CACHE_TTL", "FAKE_BACKEND_ADDR", "AUTH_TOKEN_ISSUER"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, "http://localhost:8080", cfg.APIURL)
	assert.Empty(t, cfg.AccessToken)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.RabbitMQURL)
	assert.Equal(t, 30*time.Second, cfg.FeedCacheTTL)
	assert.Equal(t, ":8080", cfg.FakeBackendAddr)
	assert.Equal(t, "gavel-auth-service", cfg.TokenIssuer)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("GAVEL_API_URL", "https://api.example.com")
	t.Setenv("GAVEL_ACCESS_TOKEN", "tok")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("REDIS_URL", "localhost:6379")
	t.Setenv("FEED_CACHE_TTL", "2m")

	cfg := FromEnv()

	assert.Equal(t, "https://api.example.com", cfg.APIURL)
	assert.Equal(t, "tok", cfg.AccessToken)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "localhost:6379", cfg.RedisURL)
	assert.Equal(t, 2*time.Minute, cfg.FeedCacheTTL)
}

func TestGetEnvDuration_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "not a duration", value: "soon"},
		{name: "bare number", value: "30"},
		{name: "negative", value: "-5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HTTP_TIMEOUT", tt.value)
			assert.Equal(t, time.Minute, getEnvDuration("HTTP_TIMEOUT", time.Minute))
		})
	}
}
