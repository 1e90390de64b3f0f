package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "suitable", cfg.App.Scheme)
	assert.Equal(t, 30*time.Minute, cfg.App.IdleTimeout)
	assert.Equal(t, 10*time.Second, cfg.Supabase.HTTPTimeout)
	assert.NotEmpty(t, cfg.Supabase.URL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("APP_SCHEME", "focus")
	t.Setenv("SESSION_IDLE_TIMEOUT", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, "focus", cfg.App.Scheme)
	assert.Equal(t, 5*time.Minute, cfg.App.IdleTimeout)
}

func TestLoad_PlainSecondsDuration(t *testing.T) {
	t.Setenv("SESSION_IDLE_TIMEOUT", "90")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.App.IdleTimeout)
}

func TestLoad_BadDurationFallsBack(t *testing.T) {
	t.Setenv("SESSION_IDLE_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.App.IdleTimeout)
}
