package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8004, cfg.Server.Port)
	assert.Equal(t, "/api/collab", cfg.Server.BasePath)
	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, 10, cfg.Collab.GraceWindowSeconds)
	assert.Equal(t, "@every 30s", cfg.Collab.SweepSpec)
	assert.Equal(t, 10*time.Second, cfg.Collab.GraceWindow())
}

func TestLoad_YamlFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9000
  log_level: info
collab:
  grace_window_seconds: 30
  sweep_spec: "@every 1m"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.Collab.GraceWindow())
	assert.Equal(t, "@every 1m", cfg.Collab.SweepSpec)
	// Values absent from the file keep their defaults.
	assert.Equal(t, "/api/collab", cfg.Server.BasePath)
}

func TestLoad_EnvOverridesYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644))

	t.Setenv("PORT", "9100")
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("PRESENCE_GRACE_SECONDS", "5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "redis.internal", cfg.Redis.Host)
	assert.Equal(t, 5*time.Second, cfg.Collab.GraceWindow())
}

func TestLoad_InvalidYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
