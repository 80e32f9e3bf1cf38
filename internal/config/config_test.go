package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 60*time.Minute, cfg.Auth.AccessTTL())
	assert.Equal(t, 24*time.Hour, cfg.Auth.RefreshTTL())
	assert.Equal(t, 20, cfg.Pagination.DefaultPageSize)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_HOST", "127.0.0.1")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "5")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("PAGINATION_MAX_PAGE_SIZE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.App.Addr())
	assert.Equal(t, 5*time.Second, cfg.App.RequestTimeout())
	assert.False(t, cfg.Postgres.RunMigrations)
	assert.Equal(t, 100, cfg.Pagination.MaxPageSize)
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "abc")

	_, err := Load()
	require.Error(t, err)
}
