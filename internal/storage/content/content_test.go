package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadFile(t *testing.T) {
	s := NewMemory()

	require.NoError(t, s.WriteFile("alice/proj/main.py", []byte("print(1)\n")))

	data, err := s.ReadFile("alice/proj/main.py")
	require.NoError(t, err)
	assert.Equal(t, "print(1)\n", string(data))

	ok, err := s.Exists("alice/proj")
	require.NoError(t, err)
	assert.True(t, ok, "parent directory should be created")
}

func TestRenameDirectoryMovesChildren(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.WriteFile("u/p/src/a.py", []byte("a")))

	require.NoError(t, s.Rename("u/p/src", "u/p/code"))

	data, err := s.ReadFile("u/p/code/a.py")
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	ok, err := s.Exists("u/p/src")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRenameMissingSourceIsNoop(t *testing.T) {
	s := NewMemory()
	assert.NoError(t, s.Rename("u/nothing", "u/else"))
}

func TestRemoveAll(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.WriteFile("u/p/a.py", []byte("a")))
	require.NoError(t, s.WriteFile("u/p/sub/b.py", []byte("b")))

	require.NoError(t, s.RemoveAll("u/p"))

	for _, p := range []string{"u/p", "u/p/a.py", "u/p/sub/b.py"} {
		ok, err := s.Exists(p)
		require.NoError(t, err)
		assert.False(t, ok, p)
	}
	assert.NoError(t, s.RemoveAll("u/p"), "second removal is not an error")
	assert.NoError(t, s.Remove("u/p/a.py"))
}

func TestPathsCannotEscapeRoot(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenDir(filepath.Join(dir, "files"))
	require.NoError(t, err)

	require.NoError(t, s.WriteFile("../../escape.txt", []byte("x")))

	_, err = os.Stat(filepath.Join(dir, "escape.txt"))
	assert.True(t, os.IsNotExist(err), "file must stay inside the store root")
	_, err = os.Stat(filepath.Join(dir, "files", "escape.txt"))
	assert.NoError(t, err)

	assert.Error(t, s.MkdirAll(""))
}
