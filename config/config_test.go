package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/advert-resolver/eviction"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.RetryCount)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, time.Hour, cfg.ErrorWindow)
	assert.Equal(t, 10, cfg.ErrorThreshold)
	assert.Equal(t, 20, cfg.MinRetainedErrors)
	assert.Equal(t, time.Second, cfg.RetryBackoff)
	assert.False(t, cfg.Serialize)
	assert.Equal(t, 16, cfg.CacheShards)
	assert.Equal(t, eviction.LRU, cfg.EvictionPolicy)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Empty(t, cfg.OTelEndpoint)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADVERT_RETRY_COUNT", "1")
	t.Setenv("ADVERT_CACHE_TTL", "30s")
	t.Setenv("ADVERT_ERROR_THRESHOLD", "4")
	t.Setenv("ADVERT_SERIALIZE", "true")
	t.Setenv("ADVERT_EVICTION_POLICY", "FIFO")
	t.Setenv("ADVERT_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	rc := cfg.ResolverConfig()
	assert.Equal(t, 1, rc.RetryCount)
	assert.Equal(t, 30*time.Second, rc.CacheTTL)
	assert.Equal(t, 4, rc.ErrorThreshold)
	assert.True(t, rc.Serialize)

	opts := cfg.CacheOptions(nil)
	assert.Equal(t, eviction.FIFO, opts.Eviction)
	assert.Equal(t, 30*time.Second, opts.DefaultTTL)

	lvl, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("ADVERT_RETRY_COUNT", "three")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidate(t *testing.T) {
	t.Setenv("ADVERT_EVICTION_POLICY", "LFU")
	t.Setenv("ADVERT_CACHE_SHARDS", "0")
	t.Setenv("ADVERT_LOG_LEVEL", "loud")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADVERT_EVICTION_POLICY")
	assert.Contains(t, err.Error(), "ADVERT_CACHE_SHARDS")
	assert.Contains(t, err.Error(), "ADVERT_LOG_LEVEL")
}
