package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("JWT_EXPIRES_IN", "")
	t.Setenv("NODE_ENV", "")
	t.Setenv("APP_ENV", "")

	cfg := FromEnv()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendScylla, cfg.StoreBackend)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiresIn)
	assert.False(t, cfg.Production)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("NODE_ENV", "production")
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("JWT_EXPIRES_IN", "90")
	t.Setenv("SCYLLA_HOSTS", "10.0.0.1, 10.0.0.2,")
	t.Setenv("BASE_URL", "https://shop.example.com/")

	cfg := FromEnv()
	assert.True(t, cfg.Production)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 90*time.Minute, cfg.JWTExpiresIn)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Scylla.Hosts)
	assert.Equal(t, "https://shop.example.com", cfg.BaseURL)
}

func TestGetDurationDays(t *testing.T) {
	t.Setenv("JWT_EXPIRES_IN", "7d")
	assert.Equal(t, 7*24*time.Hour, getDuration("JWT_EXPIRES_IN", time.Hour))

	t.Setenv("JWT_EXPIRES_IN", "bogus")
	assert.Equal(t, time.Hour, getDuration("JWT_EXPIRES_IN", time.Hour))
}

func TestValidate(t *testing.T) {
	cfg := &Config{StoreBackend: BackendMemory}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "SESSION_SECRET")

	cfg.JWTSecret = "s"
	cfg.SessionSecret = "s"
	assert.NoError(t, cfg.Validate())

	cfg.StoreBackend = BackendScylla
	assert.Error(t, cfg.Validate())

	cfg.StoreBackend = "mongo"
	assert.Error(t, cfg.Validate())
}
