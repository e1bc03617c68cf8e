package sandbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ExecOpts describes a code execution request.
type ExecOpts struct {
	Image   string            // Docker image (docker backend only)
	Command []string          // argv; relative paths resolve inside the work dir
	Files   map[string][]byte // written into the work dir before launch
	Env     map[string]string // added to (or overriding) the child environment
	Stdin   string
	Timeout time.Duration // hard wall-clock ceiling, clamped by the policy
}

// ExecResult is the output of a sandboxed execution.
type ExecResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	TimedOut bool
	Elapsed  time.Duration
	WorkDir  string // already removed when Exec returns

	// Set when the stream went past Policy.MaxOutput and was cut.
	StdoutTruncated bool
	StderrTruncated bool
}

// Sandbox runs code in an isolated environment.
type Sandbox interface {
	Exec(ctx context.Context, opts ExecOpts) (*ExecResult, error)
}

// prepareWorkDir creates a fresh directory holding opts.Files. The caller
// must remove it.
func prepareWorkDir(base string, files map[string][]byte) (string, error) {
	if base != "" {
		if err := os.MkdirAll(base, 0o755); err != nil {
			return "", fmt.Errorf("creating temp base: %w", err)
		}
	}
	dir, err := os.MkdirTemp(base, "codepad-run-*")
	if err != nil {
		return "", fmt.Errorf("creating temp dir: %w", err)
	}

	for name, data := range files {
		clean := filepath.Clean(name)
		if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
			os.RemoveAll(dir)
			return "", fmt.Errorf("file %q escapes the work dir", name)
		}
		p := filepath.Join(dir, clean)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			os.RemoveAll(dir)
			return "", fmt.Errorf("creating %s: %w", filepath.Dir(p), err)
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			os.RemoveAll(dir)
			return "", fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return dir, nil
}

// mergeEnv overlays extra on base; keys in extra win.
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		k, _, _ := strings.Cut(kv, "=")
		if _, ok := extra[k]; ok {
			continue
		}
		out = append(out, kv)
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+extra[k])
	}
	return out
}
