package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/huzeyfeaktas/python-editor/internal/config"
)

var (
	configFlag string
	viewerFlag string
)

var rootCmd = &cobra.Command{
	Use:   "codepad",
	Short: "codepad - a small multi-language code editor backend",
	Long: `codepad stores users' projects, folders and files and runs code written
in Python, HTML, CSS or JavaScript.

Python runs in a sandboxed child process with a hard time limit. HTML, CSS
and JavaScript are rendered into standalone documents and opened in a viewer.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: ./codepad.yaml or ~/.codepad/codepad.yaml)")
	rootCmd.PersistentFlags().StringVar(&viewerFlag, "viewer", "", `Viewer for rendered documents: auto, none or a command (overrides config)`)
}

// setup loads the configuration and builds the logger every command uses.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
