package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DockerSandbox runs code in Docker containers.
type DockerSandbox struct {
	Policy Policy
}

// NewDockerSandbox creates a sandbox with the given policy.
func NewDockerSandbox(policy Policy) *DockerSandbox {
	return &DockerSandbox{Policy: policy}
}

func (d *DockerSandbox) Exec(ctx context.Context, opts ExecOpts) (*ExecResult, error) {
	if !d.Policy.IsImageAllowed(opts.Image) {
		return nil, fmt.Errorf("image %q not in allowlist", opts.Image)
	}
	if len(opts.Command) == 0 {
		return nil, errors.New("empty command")
	}

	workDir, err := prepareWorkDir(d.Policy.TempDir, opts.Files)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(workDir)

	timeout := d.Policy.Clamp(opts.Timeout)
	name := "codepad-" + uuid.NewString()

	args := []string{
		"run", "--rm", "-i",
		"--name", name,
		"--memory", d.Policy.MaxMemory,
		"--stop-timeout", fmt.Sprintf("%d", int(timeout.Seconds())),
		"-v", workDir + ":/workspace:ro",
		"-w", "/workspace",
		"-e", "HOME=/tmp",
	}
	if !d.Policy.Network {
		args = append(args, "--network=none")
	}
	for _, kv := range mergeEnv(nil, opts.Env) {
		args = append(args, "-e", kv)
	}
	args = append(args, opts.Image)
	args = append(args, opts.Command...)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "docker", args...)
	cmd.WaitDelay = d.Policy.KillGrace
	cmd.Cancel = func() error {
		// Killing the CLI alone leaves the container running.
		_ = exec.Command("docker", "kill", name).Run()
		return cmd.Process.Kill()
	}

	stdout := newCappedBuffer(d.Policy.MaxOutput)
	stderr := newCappedBuffer(d.Policy.MaxOutput)
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
	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	return nil, fmt.Errorf("running docker: %w", err)
}
