package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	want := Defaults()
	assert.Equal(t, &want, cfg)
	assert.False(t, cfg.Production())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("TOPLIST_ENV", "production")
	t.Setenv("TOPLIST_STORE", "redis")
	t.Setenv("TOPLIST_REDIS_URL", "redis://cache:6379/2")
	t.Setenv("TOPLIST_MAX_CANDIDATES", "20")
	t.Setenv("TOPLIST_CANDIDATE_CACHE_TTL", "30s")
	t.Setenv("TOPLIST_NATS_URL", "nats://bus:4222")
	t.Setenv("TOPLIST_LOG_FILE", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Production())
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, "redis://cache:6379/2", cfg.RedisURL)
	assert.Equal(t, 20, cfg.MaxCandidates)
	assert.Equal(t, 30*time.Second, cfg.CandidateCacheTTL)
	assert.Equal(t, "nats://bus:4222", cfg.NATSURL)
	assert.Empty(t, cfg.LogFile, "empty value disables the log file")
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"unknown store", "TOPLIST_STORE", "postgres"},
		{"unknown level", "TOPLIST_LOG_LEVEL", "loud"},
		{"bad int", "TOPLIST_MAX_CANDIDATES", "many"},
		{"negative cap", "TOPLIST_MAX_CANDIDATES", "-1"},
		{"bad duration", "TOPLIST_CANDIDATE_CACHE_TTL", "soon"},
		{"bad env", "TOPLIST_ENV", "staging"},
		{"empty addr", "TOPLIST_HTTP_ADDR", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestFromEnv_RedisNeedsURL(t *testing.T) {
	t.Setenv("TOPLIST_STORE", "redis")
	t.Setenv("TOPLIST_REDIS_URL", "")
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestLoad_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TOPLIST_HTTP_ADDR=:9999\n"), 0o644))

	// godotenv.Load sets real process variables; register cleanup first.
	t.Setenv("TOPLIST_HTTP_ADDR", "")
	os.Unsetenv("TOPLIST_HTTP_ADDR")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}
