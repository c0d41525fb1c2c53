package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 8*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.MigrateOnStart)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, time.Hour, cfg.Postgres.ConnMaxLifetime)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("REQUEST_TIMEOUT", "2s")
	t.Setenv("MIGRATE_ON_START", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 6543, cfg.Postgres.Port)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.MigrateOnStart)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}
