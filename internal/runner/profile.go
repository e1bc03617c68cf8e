package runner

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed profiles/*.yaml
var builtinProfiles embed.FS

// Profile describes how to launch one interpreted language.
type Profile struct {
	Name        string            `yaml:"name"`
	Interpreter string            `yaml:"interpreter"`
	Args        []string          `yaml:"args"`
	Entry       string            `yaml:"entry"`    // file name the source is written to
	Launcher    bool              `yaml:"launcher"` // run the entry through the hook launcher
	Image       string            `yaml:"image"`    // docker backend only
	Encoding    string            `yaml:"encoding"`
	Hooks       []string          `yaml:"hooks"`
	KeyWaitMS   int               `yaml:"keywait_ms"`
	Env         map[string]string `yaml:"env"`
	Noise       NoiseFilter       `yaml:"noise"`
}

// LoadProfile reads a language profile from a YAML file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}
	return parseProfile(data, path)
}

// BuiltinProfile returns the profile compiled into the binary.
func BuiltinProfile(name string) (*Profile, error) {
	data, err := builtinProfiles.ReadFile("profiles/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("no builtin profile %q: %w", name, err)
	}
	return parseProfile(data, "builtin:"+name)
}

// ResolveProfile prefers <dir>/<name>.yaml and falls back to the builtin.
func ResolveProfile(dir, name string) (*Profile, error) {
	if dir != "" {
		path := filepath.Join(dir, name+".yaml")
		_, err := os.Stat(path)
		if err == nil {
			return LoadProfile(path)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("checking profile %s: %w", path, err)
		}
	}
	return BuiltinProfile(name)
}

func parseProfile(data []byte, source string) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", source, err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", source, err)
	}
	return &p, nil
}

func (p *Profile) validate() error {
	if p.Interpreter == "" {
		return errors.New("interpreter is required")
	}
	if p.Entry == "" {
		return errors.New("entry is required")
	}
	if p.Entry == launcherName || strings.ContainsAny(p.Entry, `/\`) {
		return fmt.Errorf("invalid entry %q", p.Entry)
	}
	if p.Encoding == "" {
		p.Encoding = "utf-8"
	}
	return nil
}

// command is the argv run inside the work dir.
func (p *Profile) command() []string {
	argv := append([]string{p.Interpreter}, p.Args...)
	if p.Launcher {
		argv = append(argv, launcherName)
	}
	return append(argv, p.Entry)
}

// environment merges the profile env with the launcher settings.
func (p *Profile) environment() map[string]string {
	env := make(map[string]string, len(p.Env)+2)
	for k, v := range p.Env {
		env[k] = v
	}
	if p.Launcher {
		env[envHooks] = strings.Join(p.Hooks, ",")
		if p.KeyWaitMS > 0 {
			env[envKeyWait] = strconv.Itoa(p.KeyWaitMS)
		}
	}
	return env
}
