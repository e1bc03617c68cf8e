package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "codepad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Execution.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Execution.MaxTimeout)
	assert.Equal(t, 1<<20, cfg.Execution.MaxOutput)
	assert.Equal(t, BackendProcess, cfg.Execution.Backend)
	assert.Equal(t, int64(4), cfg.Execution.MaxConcurrent)
	assert.Equal(t, "256m", cfg.Execution.Docker.Memory)
	assert.Equal(t, "auto", cfg.Render.Viewer)
	assert.Equal(t, time.Hour, cfg.Render.TTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "codepad.db", filepath.Base(cfg.Storage.DBPath))
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
storage:
  db_path: ~/data/pad.db
  files_dir: /srv/files
execution:
  timeout: 10s
  backend: docker
  docker:
    memory: 512m
    network: true
render:
  viewer: none
log:
  level: debug
  format: json
`)
	t.Setenv("CODEPAD_EXECUTION_MAX_CONCURRENT", "2")

	cfg, err := Load(path)
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, filepath.Join(home, "data", "pad.db"), cfg.Storage.DBPath)
	assert.Equal(t, "/srv/files", cfg.Storage.FilesDir)
	assert.Equal(t, 10*time.Second, cfg.Execution.Timeout)
	assert.Equal(t, BackendDocker, cfg.Execution.Backend)
	assert.Equal(t, int64(2), cfg.Execution.MaxConcurrent)
	assert.Equal(t, "512m", cfg.Execution.Docker.Memory)
	assert.True(t, cfg.Execution.Docker.Network)
	assert.Equal(t, "none", cfg.Render.Viewer)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"backend":     "execution:\n  backend: vm\n",
		"timeout":     "execution:\n  timeout: 0s\n",
		"concurrency": "execution:\n  max_concurrent: 0\n",
		"max timeout": "execution:\n  timeout: 10m\n",
		"max output":  "execution:\n  max_output: 0\n",
		"log level":   "log:\n  level: loud\n",
		"log format":  "log:\n  format: xml\n",
		"port":        "server:\n  port: 70000\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x"), expandHome("~/x"))
	assert.Equal(t, "/abs/x", expandHome("/abs/x"))
	assert.Equal(t, "rel/~x", expandHome("rel/~x"))
}
