package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/huzeyfeaktas/python-editor/internal/app"
	"github.com/huzeyfeaktas/python-editor/internal/runner"
)

var replLangFlag string

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Type code and run it interactively",
	Long: `Start an interactive prompt. Lines are collected into a buffer; an empty
line runs the buffer with the current language.

Examples:
  codepad repl
  codepad repl --lang html --viewer none`,
	RunE: runREPL,
}

func init() {
	replCmd.Flags().StringVar(&replLangFlag, "lang", string(runner.Python), "Starting language")
	replCmd.Flags().DurationVar(&timeoutFlag, "timeout", 0, "Execution time limit (default: execution.timeout)")
	rootCmd.AddCommand(replCmd)
}

// repl holds the prompt state between lines.
type repl struct {
	engine *runner.Engine
	lang   runner.Language
	buf    []string
	last   string
}

func runREPL(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	ex, err := app.BuildExecution(cfg, viewerFlag, logger)
	if err != nil {
		return err
	}

	r := &repl{engine: ex.Engine, lang: runner.Language(replLangFlag)}

	fmt.Printf("codepad - interactive runner\n")
	fmt.Printf("Languages: %s\n", joinLanguages(ex.Engine.Supported()))
	fmt.Printf("Type /help for commands, /quit to exit\n\n")

	// Set up readline for input with history
	home, _ := os.UserHomeDir()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          r.prompt(),
		HistoryFile:     filepath.Join(home, ".codepad", "history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	// Ctrl+C cancels the active run, not the whole app. A second Ctrl+C
	// while idle exits.
	var runCancel context.CancelFunc
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			if runCancel != nil {
				runCancel()
			}
		}
	}()

	for {
		rl.SetPrompt(r.prompt())
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		trimmed := strings.TrimSpace(line)

		// Handle slash commands
		if len(r.buf) == 0 && strings.HasPrefix(trimmed, "/") {
			if r.handleCommand(trimmed) {
				return nil
			}
			continue
		}

		if trimmed != "" {
			r.buf = append(r.buf, line)
			continue
		}
		if len(r.buf) == 0 {
			continue
		}

		source := strings.Join(r.buf, "\n") + "\n"
		r.buf = r.buf[:0]
		r.last = source

		runCtx, cancel := context.WithCancel(context.Background())
		runCancel = cancel
		res := r.engine.Execute(runCtx, r.lang, source, timeoutFlag)
		interrupted := runCtx.Err() != nil
		cancel()
		runCancel = nil

		if interrupted {
			fmt.Println("(interrupted)")
			continue
		}
		printResult(res)
		fmt.Printf("\033[90m[%s %.2fs]\033[0m\n\n", status(res), res.Elapsed)
	}
}

func (r *repl) prompt() string {
	if len(r.buf) > 0 {
		return "\033[36m...\033[0m "
	}
	return fmt.Sprintf("\033[36m%s>\033[0m ", r.lang)
}

// handleCommand runs a slash command and reports whether to exit.
func (r *repl) handleCommand(input string) bool {
	fields := strings.Fields(input)
	switch strings.ToLower(fields[0]) {
	case "/quit", "/exit", "/q":
		fmt.Println("Goodbye!")
		return true
	case "/lang":
		if len(fields) < 2 {
			fmt.Printf("Current language: %s\n\n", r.lang)
			break
		}
		lang := runner.Language(strings.ToLower(fields[1]))
		if !r.supports(lang) {
			fmt.Printf("Unsupported language: %s (have %s)\n\n", fields[1], joinLanguages(r.engine.Supported()))
			break
		}
		r.lang = lang
		fmt.Printf("Language set to %s.\n\n", lang)
	case "/last":
		if r.last == "" {
			fmt.Println("Nothing has run yet.")
		} else {
			fmt.Print(r.last)
		}
		fmt.Println()
	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  /help         - Show this help")
		fmt.Println("  /lang [name]  - Show or switch the language")
		fmt.Println("  /last         - Show the last submitted code")
		fmt.Println("  /quit         - Exit")
		fmt.Println()
		fmt.Println("Enter code line by line; an empty line runs it.")
		fmt.Println()
	default:
		fmt.Printf("Unknown command: %s (try /help)\n\n", input)
	}
	return false
}

func (r *repl) supports(lang runner.Language) bool {
	for _, l := range r.engine.Supported() {
		if l == lang {
			return true
		}
	}
	return false
}

func status(res runner.Result) string {
	if res.Succeeded {
		return "ok"
	}
	return "failed"
}

func joinLanguages(langs []runner.Language) string {
	names := make([]string, len(langs))
	for i, l := range langs {
		names[i] = string(l)
	}
	return strings.Join(names, ", ")
}
