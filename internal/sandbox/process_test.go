package sandbox

import (
	"context"
	"os"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSandbox(t *testing.T) *ProcessSandbox {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("process sandbox tests use sh")
	}
	p := DefaultPolicy()
	p.TempDir = t.TempDir()
	p.KillGrace = 500 * time.Millisecond
	return NewProcessSandbox(p)
}

func TestProcessExecCapturesOutput(t *testing.T) {
	sb := testSandbox(t)

	res, err := sb.Exec(context.Background(), ExecOpts{
		Command: []string{"sh", "main.sh"},
		Files: map[string][]byte{
			"main.sh":     []byte("echo out; echo err >&2; cat data/in.txt\n"),
			"data/in.txt": []byte("payload"),
		},
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "out\npayload", string(res.Stdout))
	assert.Equal(t, "err\n", string(res.Stderr))
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.TimedOut)
}

func TestProcessExecExitCode(t *testing.T) {
	sb := testSandbox(t)

	res, err := sb.Exec(context.Background(), ExecOpts{
		Command: []string{"sh", "-c", "exit 3"},
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.TimedOut)
}

func TestProcessExecEnvAndStdin(t *testing.T) {
	sb := testSandbox(t)

	res, err := sb.Exec(context.Background(), ExecOpts{
		Command: []string{"sh", "-c", `printf "%s:" "$GREETING"; cat`},
		Env:     map[string]string{"GREETING": "hi"},
		Stdin:   "from stdin",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "hi:from stdin", string(res.Stdout))
}

func TestProcessExecTimeoutKillsGroup(t *testing.T) {
	sb := testSandbox(t)

	start := time.Now()
	res, err := sb.Exec(context.Background(), ExecOpts{
		// The background sleep holds the stdout pipe open; only a group
		// kill lets Exec return promptly.
		Command: []string{"sh", "-c", "echo started; sleep 30 & wait"},
		Timeout: 300 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Equal(t, "started\n", string(res.Stdout))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestProcessExecCapsOutput(t *testing.T) {
	sb := testSandbox(t)
	sb.Policy.MaxOutput = 1000

	// Roughly 2MB on stdout; the child must still run to completion.
	res, err := sb.Exec(context.Background(), ExecOpts{
		Command: []string{"sh", "-c", `head -c 2000000 /dev/zero | tr '\0' x; echo small >&2`},
		Timeout: 20 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Len(t, res.Stdout, 1000)
	assert.True(t, res.StdoutTruncated)
	assert.Equal(t, "small\n", string(res.Stderr))
	assert.False(t, res.StderrTruncated)
}

func TestCappedBuffer(t *testing.T) {
	b := newCappedBuffer(5)
	n, err := b.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = b.Write([]byte("defgh"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "abcde", string(b.Bytes()))
	assert.True(t, b.truncated)

	unlimited := newCappedBuffer(0)
	unlimited.Write([]byte(strings.Repeat("x", 100)))
	assert.Len(t, unlimited.Bytes(), 100)
	assert.False(t, unlimited.truncated)
}

func TestProcessExecRemovesWorkDir(t *testing.T) {
	sb := testSandbox(t)

	res, err := sb.Exec(context.Background(), ExecOpts{
		Command: []string{"sh", "-c", "pwd"},
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, res.WorkDir, strings.TrimSpace(string(res.Stdout)))
	_, statErr := os.Stat(res.WorkDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcessExecRejectsEscapingFiles(t *testing.T) {
	sb := testSandbox(t)

	_, err := sb.Exec(context.Background(), ExecOpts{
		Command: []string{"sh", "-c", "true"},
		Files:   map[string][]byte{"../evil": []byte("x")},
	})
	assert.Error(t, err)
}

func TestProcessExecMissingBinary(t *testing.T) {
	sb := testSandbox(t)

	_, err := sb.Exec(context.Background(), ExecOpts{
		Command: []string{"codepad-no-such-interpreter"},
		Timeout: time.Second,
	})
	assert.Error(t, err)
}

func TestPolicyClamp(t *testing.T) {
	p := Policy{MaxTimeout: time.Minute}
	assert.Equal(t, time.Minute, p.Clamp(0))
	assert.Equal(t, time.Minute, p.Clamp(time.Hour))
	assert.Equal(t, 5*time.Second, p.Clamp(5*time.Second))

	unbounded := Policy{}
	assert.Equal(t, time.Hour, unbounded.Clamp(time.Hour))
}

func TestPolicyImageAllowlist(t *testing.T) {
	p := DefaultPolicy()
	assert.True(t, p.IsImageAllowed("python:3.12-slim"))
	assert.False(t, p.IsImageAllowed("alpine:latest"))
}

func TestMergeEnvOverrides(t *testing.T) {
	got := mergeEnv([]string{"A=1", "B=2"}, map[string]string{"B": "3", "C": "4"})
	assert.Equal(t, []string{"A=1", "B=3", "C=4"}, got)
}
