// Package content implements storage.ContentStore on top of a
// billy.Filesystem, so the same code serves the on-disk store (osfs) and
// the in-memory store used in tests (memfs).
package content

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/huzeyfeaktas/python-editor/internal/storage"
)

// Store mirrors tree nodes as files and directories.
type Store struct {
	fs billy.Filesystem
}

// New wraps an existing filesystem.
func New(fs billy.Filesystem) *Store {
	return &Store{fs: fs}
}

// OpenDir returns a store rooted at dir on the local disk, creating it if needed.
func OpenDir(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating files directory: %w", err)
	}
	return New(osfs.New(dir, osfs.WithBoundOS())), nil
}

// NewMemory returns a store that keeps everything in memory.
func NewMemory() *Store {
	return New(memfs.New())
}

// Filesystem exposes the underlying filesystem.
func (s *Store) Filesystem() billy.Filesystem {
	return s.fs
}

func (s *Store) WriteFile(p string, data []byte) error {
	p, err := clean(p)
	if err != nil {
		return err
	}
	if dir := path.Dir(p); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := util.WriteFile(s.fs, p, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", p, err)
	}
	return nil
}

func (s *Store) ReadFile(p string) ([]byte, error) {
	p, err := clean(p)
	if err != nil {
		return nil, err
	}
	data, err := util.ReadFile(s.fs, p)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	return data, nil
}

func (s *Store) MkdirAll(p string) error {
	p, err := clean(p)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(p, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", p, err)
	}
	return nil
}

// Rename moves a file or directory, creating the destination's parent.
// A missing source is not an error: there is nothing to move.
func (s *Store) Rename(from, to string) error {
	from, err := clean(from)
	if err != nil {
		return err
	}
	to, err = clean(to)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	ok, err := s.Exists(from)
	if err != nil || !ok {
		return err
	}
	if dir := path.Dir(to); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := s.fs.Rename(from, to); err != nil {
		return fmt.Errorf("moving %s to %s: %w", from, to, err)
	}
	return nil
}

// Remove deletes a single file. A missing file is not an error.
func (s *Store) Remove(p string) error {
	p, err := clean(p)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", p, err)
	}
	return nil
}

// RemoveAll deletes a directory tree. A missing tree is not an error.
func (s *Store) RemoveAll(p string) error {
	p, err := clean(p)
	if err != nil {
		return err
	}
	if err := util.RemoveAll(s.fs, p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", p, err)
	}
	return nil
}

func (s *Store) Exists(p string) (bool, error) {
	p, err := clean(p)
	if err != nil {
		return false, err
	}
	_, err = s.fs.Stat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", p, err)
}

// clean normalizes p and rejects paths that escape the store root.
func clean(p string) (string, error) {
	c := path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	c = strings.TrimPrefix(c, "/")
	if c == "" || c == "." {
		return "", fmt.Errorf("empty content path %q", p)
	}
	return c, nil
}

var _ storage.ContentStore = (*Store)(nil)
