package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "catalog.json", cfg.CatalogPath)
	assert.Equal(t, int64(0), cfg.Seed)
	assert.Equal(t, 5*time.Second, cfg.RetryMaxWait)
	assert.Equal(t, 1.5, cfg.BaseChatRate)
	assert.Equal(t, 500*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 6*time.Second, cfg.IdleInterval)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GHOSTSTREAM_CATALOG", "/tmp/content.json")
	t.Setenv("GHOSTSTREAM_SEED", "42")
	t.Setenv("GHOSTSTREAM_RETRY_MAX_WAIT", "12s")
	t.Setenv("GHOSTSTREAM_CHAT_RATE", "3.5")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/content.json", cfg.CatalogPath)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 12*time.Second, cfg.RetryMaxWait)
	assert.Equal(t, 3.5, cfg.BaseChatRate)
}

func TestBadValueIsError(t *testing.T) {
	t.Setenv("GHOSTSTREAM_RETRY_MAX_WAIT", "not-a-duration")
	_, err := New()
	assert.Error(t, err)
}
