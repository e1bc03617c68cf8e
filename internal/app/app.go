// Package app assembles codepad's components from a loaded configuration.
// The serve, run and repl commands and the MCP tool servers share it.
package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/huzeyfeaktas/python-editor/internal/config"
	"github.com/huzeyfeaktas/python-editor/internal/runner"
	"github.com/huzeyfeaktas/python-editor/internal/sandbox"
	"github.com/huzeyfeaktas/python-editor/internal/storage/content"
	"github.com/huzeyfeaktas/python-editor/internal/storage/sqlite"
	"github.com/huzeyfeaktas/python-editor/internal/tree"
	"github.com/huzeyfeaktas/python-editor/internal/viewer"
)

// Tree is an opened tree service together with its metadata store.
type Tree struct {
	*tree.Service
	store *sqlite.SQLiteStore
}

// Close releases the metadata store.
func (t *Tree) Close() error {
	return t.store.Close()
}

// OpenTree opens the metadata database and the content directory.
func OpenTree(cfg *config.Config, logger *slog.Logger) (*Tree, error) {
	store, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	files, err := content.OpenDir(cfg.Storage.FilesDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening content store: %w", err)
	}
	return &Tree{Service: tree.New(store, files, logger), store: store}, nil
}

// Execution is a configured engine and the render runners registered on it.
type Execution struct {
	Engine    *runner.Engine
	Renderers []*runner.RenderRunner
}

// Policy maps the execution settings onto a sandbox policy.
func Policy(cfg *config.Config) sandbox.Policy {
	p := sandbox.DefaultPolicy()
	p.MaxTimeout = cfg.Execution.MaxTimeout
	p.MaxOutput = cfg.Execution.MaxOutput
	if cfg.Execution.Docker.Memory != "" {
		p.MaxMemory = cfg.Execution.Docker.Memory
	}
	p.Network = cfg.Execution.Docker.Network
	return p
}

// NewSandbox returns the sandbox selected by execution.backend.
func NewSandbox(cfg *config.Config) (sandbox.Sandbox, error) {
	policy := Policy(cfg)
	switch cfg.Execution.Backend {
	case config.BackendProcess:
		return sandbox.NewProcessSandbox(policy), nil
	case config.BackendDocker:
		return sandbox.NewDockerSandbox(policy), nil
	}
	return nil, fmt.Errorf("unknown execution backend %q", cfg.Execution.Backend)
}

// BuildExecution registers the Python script runner and the HTML, CSS and
// JavaScript render runners. viewerMode overrides render.viewer when set.
func BuildExecution(cfg *config.Config, viewerMode string, logger *slog.Logger) (*Execution, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sb, err := NewSandbox(cfg)
	if err != nil {
		return nil, err
	}
	profile, err := runner.ResolveProfile(cfg.Execution.ProfilesDir, string(runner.Python))
	if err != nil {
		return nil, err
	}
	python, err := runner.NewScriptRunner(runner.ScriptConfig{
		Profile:   profile,
		Sandbox:   sb,
		MaxBudget: cfg.Execution.MaxTimeout,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	if viewerMode == "" {
		viewerMode = cfg.Render.Viewer
	}
	v, err := viewer.New(viewerMode)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Render.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating render dir: %w", err)
	}

	engine := runner.NewEngine(runner.EngineConfig{
		DefaultBudget: cfg.Execution.Timeout,
		MaxConcurrent: cfg.Execution.MaxConcurrent,
	}, logger)
	engine.Register(runner.Python, python)

	ex := &Execution{Engine: engine}
	for _, lang := range []runner.Language{runner.HTML, runner.CSS, runner.JavaScript} {
		r, err := runner.NewRenderRunner(lang, cfg.Render.Dir, v, logger)
		if err != nil {
			return nil, err
		}
		engine.Register(lang, r)
		ex.Renderers = append(ex.Renderers, r)
	}

	logger.Info("execution engine ready",
		"backend", cfg.Execution.Backend,
		"profile", profile.Name,
		"languages", engine.Supported())
	return ex, nil
}
