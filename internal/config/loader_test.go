package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSecrets(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "access-secret-access-secret-0001")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret-refresh-secret-01")
}

func TestLoadDefaults(t *testing.T) {
	setSecrets(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, 7200*time.Second, cfg.JWT.AccessTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.JWT.RefreshTTL)
	assert.True(t, cfg.Redis.Embedded)
	assert.Empty(t, cfg.DB.DSN)

	ec := cfg.EngineConfig()
	require.NoError(t, ec.Validate())
	assert.Equal(t, []byte("access-secret-access-secret-0001"), ec.JWT.AccessSecret)
	assert.True(t, ec.Metrics.EnableLatencyHistograms)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrMissingSecrets)
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	setSecrets(t)
	path := filepath.Join(t.TempDir(), "wbauthd.yaml")
	body := []byte(`
server:
  http_addr: ":9000"
redis:
  addr: "redis:6379"
  prefix: "wb:"
jwt:
  access_ttl: 15m
log:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))
	t.Setenv("REDIS_PREFIX", "env:")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.HTTPAddr)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "env:", cfg.Redis.Prefix)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, "debug", cfg.AsLoggerConfig().Level)
	assert.Equal(t, "env:", cfg.EngineConfig().Store.KeyPrefix)
}

func TestLoadProductionDisablesEmbeddedRedis(t *testing.T) {
	setSecrets(t)
	t.Setenv("APP_PRODUCTION", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.Redis.Embedded)
	assert.True(t, cfg.EngineConfig().Security.ProductionMode)
}

func TestMissingFileIsIgnored(t *testing.T) {
	setSecrets(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
}
