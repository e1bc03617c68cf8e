package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huzeyfeaktas/python-editor/internal/config"
	"github.com/huzeyfeaktas/python-editor/internal/runner"
	"github.com/huzeyfeaktas/python-editor/internal/sandbox"
	"github.com/huzeyfeaktas/python-editor/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Storage: config.StorageConfig{
			DBPath:   filepath.Join(dir, "db", "codepad.db"),
			FilesDir: filepath.Join(dir, "files"),
		},
		Execution: config.ExecutionConfig{
			Timeout:       10 * time.Second,
			MaxTimeout:    time.Minute,
			MaxOutput:     4096,
			Backend:       config.BackendProcess,
			MaxConcurrent: 2,
			Docker:        config.DockerConfig{Memory: "512m"},
		},
		Render: config.RenderConfig{Dir: filepath.Join(dir, "render"), Viewer: "none", TTL: time.Hour},
	}
}

func TestPolicyFromConfig(t *testing.T) {
	cfg := testConfig(t)
	p := Policy(cfg)
	assert.Equal(t, "512m", p.MaxMemory)
	assert.Equal(t, time.Minute, p.MaxTimeout)
	assert.Equal(t, 4096, p.MaxOutput)
	assert.False(t, p.Network)
	assert.True(t, p.IsImageAllowed("python:3.12-slim"))
}

func TestNewSandbox(t *testing.T) {
	cfg := testConfig(t)

	sb, err := NewSandbox(cfg)
	require.NoError(t, err)
	assert.IsType(t, &sandbox.ProcessSandbox{}, sb)

	cfg.Execution.Backend = config.BackendDocker
	sb, err = NewSandbox(cfg)
	require.NoError(t, err)
	assert.IsType(t, &sandbox.DockerSandbox{}, sb)

	cfg.Execution.Backend = "vm"
	_, err = NewSandbox(cfg)
	assert.Error(t, err)
}

func TestBuildExecution(t *testing.T) {
	cfg := testConfig(t)

	ex, err := BuildExecution(cfg, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []runner.Language{runner.CSS, runner.HTML, runner.JavaScript, runner.Python}, ex.Engine.Supported())
	assert.Len(t, ex.Renderers, 3)
	assert.DirExists(t, cfg.Render.Dir)

	res := ex.Engine.Execute(context.Background(), runner.HTML, "<p>x</p>", 0)
	require.True(t, res.Succeeded, res.Stderr)
	assert.FileExists(t, filepath.Join(cfg.Render.Dir, res.Artifact))
}

func TestBuildExecutionBadProfilesDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Execution.ProfilesDir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Execution.ProfilesDir, "python.yaml"), []byte("interpreter: \"\"\n"), 0o644))

	_, err := BuildExecution(cfg, "", nil)
	assert.Error(t, err)
}

func TestOpenTree(t *testing.T) {
	cfg := testConfig(t)

	tr, err := OpenTree(cfg, nil)
	require.NoError(t, err)
	defer tr.Close()

	bundle, err := tr.CreateProject(context.Background(), "alice", "demo", "")
	require.NoError(t, err)
	assert.Equal(t, storage.KindProject, bundle.Project.Kind)
	assert.FileExists(t, filepath.Join(cfg.Storage.FilesDir, "alice", "demo", "main.py"))
}
