package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultConfig(t *testing.T) {
	cfg := LoadDefaultConfig()

	assert.Equal(t, "info", cfg.Log.Level)
	assert.NotEmpty(t, cfg.Database.URL)
	assert.NotEmpty(t, cfg.Storage.WarehousePath)
	assert.Equal(t, HTTP_SERVER_PORT, cfg.GetHTTPPort())
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "icecat.yml")
	content := `
log:
  level: debug
  console: true
database:
  url: "file:/tmp/cat.db?_foreign_keys=on"
storage:
  warehouse_path: "` + dir + `"
http:
  port: 9191
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "file:/tmp/cat.db?_foreign_keys=on", cfg.GetDatabaseURL())
	assert.Equal(t, dir, cfg.GetWarehousePath())
	assert.Equal(t, 9191, cfg.GetHTTPPort())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	wh := t.TempDir()
	t.Setenv(EnvDatabaseURL, "file::memory:?cache=shared")
	t.Setenv(EnvWarehousePath, wh)

	cfg := LoadDefaultConfig()
	cfg.ApplyEnv()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "file::memory:?cache=shared", cfg.GetDatabaseURL())
	assert.Equal(t, wh, cfg.GetWarehousePath())
}

func TestValidateRejectsEmptyDatabaseURL(t *testing.T) {
	cfg := LoadDefaultConfig()
	cfg.Database.URL = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateResolvesRelativeWarehousePath(t *testing.T) {
	cfg := LoadDefaultConfig()
	cfg.Storage.WarehousePath = "relative/warehouse"
	require.NoError(t, cfg.Validate())
	assert.True(t, filepath.IsAbs(cfg.GetWarehousePath()))
}
