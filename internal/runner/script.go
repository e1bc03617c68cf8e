package runner

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/huzeyfeaktas/python-editor/internal/sandbox"
)

const (
	launcherName = "launcher.py"
	envHooks     = "CODEPAD_HOOKS"
	envKeyWait   = "CODEPAD_KEYWAIT_MS"
)

//go:embed harness/launcher.py
var launcherSource []byte

// ScriptConfig wires a ScriptRunner.
type ScriptConfig struct {
	Profile   *Profile
	Sandbox   sandbox.Sandbox
	MaxBudget time.Duration // budgets above this are clamped; 0 means no cap
	Logger    *slog.Logger
}

// ScriptRunner executes interpreted source in a child process.
type ScriptRunner struct {
	profile   *Profile
	sandbox   sandbox.Sandbox
	maxBudget time.Duration
	enc       encoding.Encoding
	log       *slog.Logger
}

// NewScriptRunner validates the profile encoding and returns a runner.
func NewScriptRunner(cfg ScriptConfig) (*ScriptRunner, error) {
	if cfg.Profile == nil {
		return nil, fmt.Errorf("script runner: profile is required")
	}
	if cfg.Sandbox == nil {
		return nil, fmt.Errorf("script runner: sandbox is required")
	}
	enc, err := htmlindex.Get(cfg.Profile.Encoding)
	if err != nil {
		return nil, fmt.Errorf("profile %s: encoding %q: %w", cfg.Profile.Name, cfg.Profile.Encoding, err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ScriptRunner{
		profile:   cfg.Profile,
		sandbox:   cfg.Sandbox,
		maxBudget: cfg.MaxBudget,
		enc:       enc,
		log:       logger.With("profile", cfg.Profile.Name),
	}, nil
}

func (r *ScriptRunner) launchesProcess() {}

// Run writes source into a fresh work dir, runs it under the budget and
// returns the normalized result.
func (r *ScriptRunner) Run(ctx context.Context, source string, budget time.Duration) Result {
	if r.maxBudget > 0 && (budget <= 0 || budget > r.maxBudget) {
		budget = r.maxBudget
	}

	files := map[string][]byte{r.profile.Entry: []byte(source)}
	if r.profile.Launcher {
		files[launcherName] = launcherSource
	}

	res, err := r.sandbox.Exec(ctx, sandbox.ExecOpts{
		Image:   r.profile.Image,
		Command: r.profile.command(),
		Files:   files,
		Env:     r.profile.environment(),
		Timeout: budget,
	})
	if err != nil {
		r.log.Warn("execution failed to start", "error", err)
		return failed(err.Error())
	}
	if res.TimedOut {
		r.log.Info("execution timed out", "budget", budget)
		return Result{
			Succeeded: false,
			Stderr:    timeoutMessage(budget),
			Elapsed:   budget.Seconds(),
		}
	}

	out := r.profile.Noise.Normalize(Result{
		Succeeded: res.ExitCode == 0,
		Stdout:    r.decode(res.Stdout),
		Stderr:    r.decode(res.Stderr),
		Elapsed:   res.Elapsed.Seconds(),
	})
	if res.StdoutTruncated {
		r.log.Info("stdout truncated", "kept", len(res.Stdout))
		out.Stdout = withTruncationMark(out.Stdout)
	}
	if res.StderrTruncated {
		out.Stderr = withTruncationMark(out.Stderr)
	}
	return out
}

// TruncationMark ends a stream that went past the capture limit.
const TruncationMark = "... (output truncated)"

func withTruncationMark(s string) string {
	if s == "" {
		return TruncationMark
	}
	return s + "\n" + TruncationMark
}

// decode converts child output to UTF-8, replacing undecodable bytes.
func (r *ScriptRunner) decode(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	out, err := r.enc.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(out)
}

func timeoutMessage(budget time.Duration) string {
	secs := strconv.FormatFloat(budget.Seconds(), 'f', -1, 64)
	return fmt.Sprintf("execution exceeded %s seconds", secs)
}
