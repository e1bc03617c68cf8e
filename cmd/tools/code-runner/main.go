package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/huzeyfeaktas/python-editor/internal/app"
	"github.com/huzeyfeaktas/python-editor/internal/config"
	"github.com/huzeyfeaktas/python-editor/internal/runner"
)

const maxOutput = 4000

type codeRunner struct {
	engine *runner.Engine
}

func main() {
	cfg, err := config.Load(os.Getenv("CODEPAD_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	// stdout carries the MCP stream.
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ex, err := app.BuildExecution(cfg, "none", logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	s := server.NewMCPServer("codepad-code-runner", "0.1.0")
	cr := &codeRunner{engine: ex.Engine}
	s.AddTool(codeRunTool(ex.Engine.Supported()), cr.handleCodeRun)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
	}
}

func codeRunTool(langs []runner.Language) mcp.Tool {
	names := make([]string, len(langs))
	for i, l := range langs {
		names[i] = string(l)
	}
	return mcp.Tool{
		Name: "code_run",
		Description: fmt.Sprintf("Run code the way the codepad editor does. Python runs in a sandbox with a time limit; "+
			"HTML, CSS and JavaScript are rendered to a document. Supported languages: %s.", strings.Join(names, ", ")),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"language": map[string]any{
					"type":        "string",
					"description": "Language (" + strings.Join(names, ", ") + ")",
				},
				"code": map[string]any{
					"type":        "string",
					"description": "Source code to execute",
				},
				"timeout": map[string]any{
					"type":        "number",
					"description": "Time limit in seconds (optional)",
				},
			},
			Required: []string{"language", "code"},
		},
	}
}

func (cr *codeRunner) handleCodeRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	if args == nil {
		return errResult("error: invalid arguments"), nil
	}

	language, _ := args["language"].(string)
	code, _ := args["code"].(string)
	timeout, _ := args["timeout"].(float64)

	if language == "" || code == "" {
		return errResult("error: 'language' and 'code' are required"), nil
	}
	if timeout < 0 {
		return errResult("error: 'timeout' must not be negative"), nil
	}

	res := cr.engine.Execute(ctx, runner.Language(language), code, time.Duration(timeout*float64(time.Second)))

	var output strings.Builder
	if res.Stdout != "" {
		output.WriteString(res.Stdout)
	}
	if res.Stderr != "" {
		if output.Len() > 0 {
			output.WriteString("\n")
		}
		output.WriteString("STDERR:\n" + res.Stderr)
	}
	output.WriteString(fmt.Sprintf("\nelapsed: %.2fs", res.Elapsed))

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: truncate(output.String(), maxOutput)}},
		IsError: !res.Succeeded,
	}, nil
}

// truncate cuts text to at most limit bytes without splitting a rune.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "\n" + runner.TruncationMark
}

func errResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: true,
	}
}
