package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ProcessSandbox runs code as a local child process. It bounds wall-clock
// time and captures output; it does not restrict syscalls, network or
// filesystem access.
type ProcessSandbox struct {
	Policy Policy
}

// NewProcessSandbox creates a process sandbox with the given policy.
func NewProcessSandbox(policy Policy) *ProcessSandbox {
	return &ProcessSandbox{Policy: policy}
}

func (p *ProcessSandbox) Exec(ctx context.Context, opts ExecOpts) (*ExecResult, error) {
	if len(opts.Command) == 0 {
		return nil, errors.New("empty command")
	}

	workDir, err := prepareWorkDir(p.Policy.TempDir, opts.Files)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(workDir)

	timeout := p.Policy.Clamp(opts.Timeout)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, opts.Command[0], opts.Command[1:]...)
	cmd.Dir = workDir
	cmd.Env = mergeEnv(os.Environ(), opts.Env)
	cmd.WaitDelay = p.Policy.KillGrace
	configureProcessGroup(cmd)

	stdout := newCappedBuffer(p.Policy.MaxOutput)
	stderr := newCappedBuffer(p.Policy.MaxOutput)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if opts.Stdin != "" {
		cmd.Stdin = strings.NewReader(opts.Stdin)
	}

	start := time.Now()
	err = cmd.Run()
	result := &ExecResult{
		Stdout:          stdout.Bytes(),
		Stderr:          stderr.Bytes(),
		StdoutTruncated: stdout.truncated,
		StderrTruncated: stderr.truncated,
		Elapsed:         time.Since(start),
		WorkDir:         workDir,
	}
	if err == nil {
		return result, nil
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
		result.ExitCode = -1
		return result, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("execution cancelled: %w", ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	return nil, fmt.Errorf("running %s: %w", opts.Command[0], err)
}
