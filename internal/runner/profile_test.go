package runner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinPythonProfile(t *testing.T) {
	p, err := BuiltinProfile("python")
	require.NoError(t, err)

	assert.Equal(t, []string{"python3", "launcher.py", "main.py"}, p.command())

	env := p.environment()
	assert.Equal(t, "plot,image,keywait,turtle", env[envHooks])
	assert.Equal(t, "1000", env[envKeyWait])
	assert.Equal(t, "utf-8", env["PYTHONIOENCODING"])
	assert.Equal(t, "2", env["TF_CPP_MIN_LOG_LEVEL"])
	assert.Equal(t, "dummy", env["SDL_VIDEODRIVER"])
	assert.Contains(t, p.Noise.StderrGeneric, "futurewarning")
}

func TestBuiltinProfileMissing(t *testing.T) {
	_, err := BuiltinProfile("cobol")
	assert.Error(t, err)
}

func TestResolveProfilePrefersDirectory(t *testing.T) {
	dir := t.TempDir()
	override := "name: python\ninterpreter: /opt/py/bin/python\nargs: [-X, dev]\nentry: main.py\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "python.yaml"), []byte(override), 0o644))

	p, err := ResolveProfile(dir, "python")
	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/py/bin/python", "-X", "dev", "main.py"}, p.command())
	assert.Equal(t, "utf-8", p.Encoding)
	assert.NotContains(t, p.environment(), envHooks)
}

func TestResolveProfileFallsBackToBuiltin(t *testing.T) {
	p, err := ResolveProfile(t.TempDir(), "python")
	require.NoError(t, err)
	assert.Equal(t, "python3", p.Interpreter)
}

func TestLoadProfileValidation(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"no-interpreter.yaml": "name: x\nentry: main.py\n",
		"no-entry.yaml":       "name: x\ninterpreter: sh\n",
		"nested-entry.yaml":   "name: x\ninterpreter: sh\nentry: a/main.sh\n",
		"launcher-entry.yaml": "name: x\ninterpreter: sh\nentry: launcher.py\n",
		"bad-yaml.yaml":       "name: [x\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := LoadProfile(path)
			assert.Error(t, err)
		})
	}
}
