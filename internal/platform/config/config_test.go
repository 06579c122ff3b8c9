package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"en", "es"}, cfg.Server.Locales)
	assert.Equal(t, "https://next-app-i18n-starter.vercel.app", cfg.Server.BaseURL)
	assert.Equal(t, 6, cfg.Identity.MinPasswordLength)
	assert.Equal(t, 15*time.Minute, cfg.Identity.AttemptWindow)
	assert.Equal(t, "gemini-2.0-flash-001", cfg.Chat.Model)
	assert.False(t, cfg.Google.Enabled())
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Empty(t, cfg.Tracing.Endpoint)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORTAL_ADDR", ":9090")
	t.Setenv("PORTAL_LOCALES", "en,de, fr,DE")
	t.Setenv("IDENTITY_MAX_FAILED_ATTEMPTS", "3")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092,kafka-1:9092")
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	t.Setenv("GOOGLE_REDIRECT_URL", "http://localhost/cb")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"en", "de", "fr"}, cfg.Server.Locales)
	assert.Equal(t, 3, cfg.Identity.MaxFailedAttempts)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Google.Enabled())
}

func TestFromEnvRejectsBadDuration(t *testing.T) {
	t.Setenv("IDENTITY_ATTEMPT_WINDOW", "soon")

	_, err := FromEnv()
	require.Error(t, err)
}
