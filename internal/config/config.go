package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type StorageConfig struct {
	DBPath   string `mapstructure:"db_path"`
	FilesDir string `mapstructure:"files_dir"`
}

type DockerConfig struct {
	Memory  string `mapstructure:"memory"`
	Network bool   `mapstructure:"network"`
}

type ExecutionConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxTimeout    time.Duration `mapstructure:"max_timeout"`
	MaxOutput     int           `mapstructure:"max_output"`
	Backend       string        `mapstructure:"backend"`
	MaxConcurrent int64         `mapstructure:"max_concurrent"`
	ProfilesDir   string        `mapstructure:"profiles_dir"`
	Docker        DockerConfig  `mapstructure:"docker"`
}

type RenderConfig struct {
	Dir    string        `mapstructure:"dir"`
	Viewer string        `mapstructure:"viewer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Render    RenderConfig    `mapstructure:"render"`
	Log       LogConfig       `mapstructure:"log"`
}

const (
	BackendProcess = "process"
	BackendDocker  = "docker"
)

// Load reads codepad.yaml from path, or from . and $HOME/.codepad when path
// is empty. A missing search-path config is not an error; CODEPAD_* env
// vars override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("codepad")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.codepad")
	}

	v.SetEnvPrefix("CODEPAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Storage.DBPath = expandHome(cfg.Storage.DBPath)
	cfg.Storage.FilesDir = expandHome(cfg.Storage.FilesDir)
	cfg.Execution.ProfilesDir = expandHome(cfg.Execution.ProfilesDir)
	cfg.Render.Dir = expandHome(cfg.Render.Dir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()

	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.db_path", filepath.Join(home, ".codepad", "codepad.db"))
	v.SetDefault("storage.files_dir", filepath.Join(home, ".codepad", "files"))
	v.SetDefault("execution.timeout", "30s")
	v.SetDefault("execution.max_timeout", "5m")
	v.SetDefault("execution.max_output", 1<<20)
	v.SetDefault("execution.backend", BackendProcess)
	v.SetDefault("execution.max_concurrent", 4)
	v.SetDefault("execution.profiles_dir", "")
	v.SetDefault("execution.docker.memory", "256m")
	v.SetDefault("execution.docker.network", false)
	v.SetDefault("render.dir", filepath.Join(os.TempDir(), "codepad-render"))
	v.SetDefault("render.viewer", "auto")
	v.SetDefault("render.ttl", "1h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate rejects settings the rest of the program cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Storage.DBPath == "" {
		errs = append(errs, errors.New("storage.db_path is required"))
	}
	if c.Storage.FilesDir == "" {
		errs = append(errs, errors.New("storage.files_dir is required"))
	}
	switch c.Execution.Backend {
	case BackendProcess, BackendDocker:
	default:
		errs = append(errs, fmt.Errorf("execution.backend %q: want %s or %s", c.Execution.Backend, BackendProcess, BackendDocker))
	}
	if c.Execution.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("execution.timeout must be positive, got %s", c.Execution.Timeout))
	}
	if c.Execution.MaxTimeout < c.Execution.Timeout {
		errs = append(errs, fmt.Errorf("execution.max_timeout %s is below execution.timeout %s", c.Execution.MaxTimeout, c.Execution.Timeout))
	}
	if c.Execution.MaxOutput <= 0 {
		errs = append(errs, fmt.Errorf("execution.max_output must be positive, got %d", c.Execution.MaxOutput))
	}
	if c.Execution.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Errorf("execution.max_concurrent must be positive, got %d", c.Execution.MaxConcurrent))
	}
	if c.Render.TTL <= 0 {
		errs = append(errs, fmt.Errorf("render.ttl must be positive, got %s", c.Render.TTL))
	}
	if err := c.Log.validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
