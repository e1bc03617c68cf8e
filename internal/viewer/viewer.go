// Package viewer opens rendered documents for a human to look at.
package viewer

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Viewer opens the document at path. Implementations must not wait for
// the document to be closed.
type Viewer interface {
	Open(path string) error
}

// Command opens documents with an external program.
type Command struct {
	Name string
	Args []string // placed before the document path
}

// Open starts the program and returns without waiting for it.
func (c *Command) Open(path string) error {
	args := append(append([]string{}, c.Args...), path)
	cmd := exec.Command(c.Name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting viewer %s: %w", c.Name, err)
	}
	go cmd.Wait() //nolint:errcheck
	return nil
}

// Discard accepts every document and shows nothing. Used on headless hosts.
type Discard struct{}

func (Discard) Open(string) error { return nil }

// SystemDefault returns the platform opener, or false if it is not installed.
func SystemDefault() (*Command, bool) {
	var c *Command
	switch runtime.GOOS {
	case "darwin":
		c = &Command{Name: "open"}
	case "windows":
		c = &Command{Name: "rundll32", Args: []string{"url.dll,FileProtocolHandler"}}
	default:
		c = &Command{Name: "xdg-open"}
	}
	if _, err := exec.LookPath(c.Name); err != nil {
		return nil, false
	}
	return c, true
}

// New builds a viewer from a config value: "auto" uses the platform opener
// when present, "none" discards, anything else is a command line.
func New(mode string) (Viewer, error) {
	switch strings.TrimSpace(mode) {
	case "", "auto":
		if c, ok := SystemDefault(); ok {
			return c, nil
		}
		return Discard{}, nil
	case "none":
		return Discard{}, nil
	}
	fields := strings.Fields(mode)
	if _, err := exec.LookPath(fields[0]); err != nil {
		return nil, fmt.Errorf("viewer %q: %w", fields[0], err)
	}
	return &Command{Name: fields[0], Args: fields[1:]}, nil
}
