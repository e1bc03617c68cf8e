package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/huzeyfeaktas/python-editor/internal/app"
	"github.com/huzeyfeaktas/python-editor/internal/runner"
)

var (
	langFlag    string
	timeoutFlag time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run a local source file",
	Long: `Run a Python, HTML, CSS or JavaScript file from disk.

The language is inferred from the file extension unless --lang is given.
Python output is printed; the other languages open in the viewer.

Examples:
  codepad run hello.py
  codepad run page.html --viewer none
  codepad run script.txt --lang python --timeout 5s`,
	Args: cobra.ExactArgs(1),
	RunE: runFile,
}

func init() {
	runCmd.Flags().StringVar(&langFlag, "lang", "", "Language (python, html, css, javascript)")
	runCmd.Flags().DurationVar(&timeoutFlag, "timeout", 0, "Execution time limit (default: execution.timeout)")
	rootCmd.AddCommand(runCmd)
}

func runFile(cmd *cobra.Command, args []string) error {
	lang := runner.Language(langFlag)
	if lang == "" {
		var ok bool
		lang, ok = runner.LanguageForFile(args[0])
		if !ok {
			return fmt.Errorf("cannot infer language of %s; use --lang", args[0])
		}
	}

	source, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	ex, err := app.BuildExecution(cfg, viewerFlag, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := ex.Engine.Execute(ctx, lang, string(source), timeoutFlag)
	printResult(res)
	if !res.Succeeded {
		return fmt.Errorf("%s run failed after %.2fs", lang, res.Elapsed)
	}
	return nil
}

func printResult(res runner.Result) {
	if res.Stdout != "" {
		fmt.Println(res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprintf(os.Stderr, "\033[31m%s\033[0m\n", res.Stderr)
	}
}
