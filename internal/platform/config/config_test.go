package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("KV_BACKEND", "")
	t.Setenv("PORT", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, KVMemory, cfg.KVBackend)
	assert.True(t, cfg.Persist)
	assert.Equal(t, time.Duration(0), cfg.SeedDelay)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SEED_DELAY", "500ms")
	t.Setenv("PERSIST", "false")
	t.Setenv("CORS_ORIGINS", "http://localhost:5173, http://localhost:3000")
	t.Setenv("KV_BACKEND", "redis")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, 500*time.Millisecond, cfg.SeedDelay)
	assert.False(t, cfg.Persist)
	assert.Equal(t, KVRedis, cfg.KVBackend)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoad_PostgresKVRequiresDSN(t *testing.T) {
	t.Setenv("KV_BACKEND", "postgres")
	t.Setenv("DB_DSN", "")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("KV_BACKEND", "etcd")

	_, err := Load("")
	require.Error(t, err)
}
