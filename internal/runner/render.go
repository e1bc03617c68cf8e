package runner

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/huzeyfeaktas/python-editor/internal/viewer"
)

//go:embed templates/*.tmpl
var renderTemplates embed.FS

// renderElapsed is reported for every render; nothing is computed in-process.
const renderElapsed = 0.1

const artifactPrefix = "codepad-"

var renderMessages = map[Language]string{
	HTML:       "HTML page opened in viewer: %s",
	CSS:        "CSS preview opened in viewer: %s",
	JavaScript: "JavaScript page running in viewer: %s",
}

// RenderRunner wraps browser-side source into a standalone document and
// hands it to a viewer.
type RenderRunner struct {
	lang   Language
	tmpl   *template.Template
	dir    string
	viewer viewer.Viewer
	log    *slog.Logger
	now    func() time.Time
}

// NewRenderRunner creates a runner for one of HTML, CSS or JavaScript that
// writes artifacts into dir.
func NewRenderRunner(lang Language, dir string, v viewer.Viewer, logger *slog.Logger) (*RenderRunner, error) {
	if _, ok := renderMessages[lang]; !ok {
		return nil, fmt.Errorf("no render template for %q", lang)
	}
	tmpl, err := template.ParseFS(renderTemplates, "templates/"+string(lang)+".tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing %s template: %w", lang, err)
	}
	if v == nil {
		v = viewer.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RenderRunner{
		lang:   lang,
		tmpl:   tmpl,
		dir:    dir,
		viewer: v,
		log:    logger.With("language", string(lang)),
		now:    time.Now,
	}, nil
}

// Run renders source, writes the artifact and opens it. The budget is
// ignored.
func (r *RenderRunner) Run(_ context.Context, source string, _ time.Duration) Result {
	var doc bytes.Buffer
	if err := r.tmpl.Execute(&doc, struct{ Source string }{source}); err != nil {
		return failed(fmt.Sprintf("rendering %s: %v", r.lang, err))
	}

	path, err := r.writeArtifact(doc.Bytes())
	if err != nil {
		return failed(err.Error())
	}
	if err := r.viewer.Open(path); err != nil {
		r.log.Warn("viewer failed", "artifact", path, "error", err)
		return failed(err.Error())
	}

	name := filepath.Base(path)
	return Result{
		Succeeded: true,
		Stdout:    fmt.Sprintf(renderMessages[r.lang], name),
		Elapsed:   renderElapsed,
		Artifact:  name,
	}
}

func (r *RenderRunner) writeArtifact(doc []byte) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating render dir: %w", err)
	}
	f, err := os.CreateTemp(r.dir, r.prefix()+"*.html")
	if err != nil {
		return "", fmt.Errorf("creating artifact: %w", err)
	}
	if _, err := f.Write(doc); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing artifact: %w", err)
	}
	return f.Name(), nil
}

func (r *RenderRunner) prefix() string {
	return artifactPrefix + string(r.lang) + "-"
}

// Sweep removes this runner's artifacts older than maxAge and reports how
// many were removed.
func (r *RenderRunner) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading render dir: %w", err)
	}

	cutoff := r.now().Add(-maxAge)
	removed := 0
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), r.prefix()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(r.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// ArtifactPath resolves an artifact name produced by a RenderRunner inside
// dir, rejecting anything else.
func ArtifactPath(dir, name string) (string, error) {
	if name != filepath.Base(name) || !strings.HasPrefix(name, artifactPrefix) || !strings.HasSuffix(name, ".html") {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	return filepath.Join(dir, name), nil
}
