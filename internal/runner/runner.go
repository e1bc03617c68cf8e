// Package runner turns submitted source text into a Result, one Runner per
// supported language.
package runner

import (
	"context"
	"path"
	"strings"
	"time"
)

// Language identifies one of the supported submission languages.
type Language string

const (
	Python     Language = "python"
	HTML       Language = "html"
	CSS        Language = "css"
	JavaScript Language = "javascript"
)

// Languages returns every supported language.
func Languages() []Language {
	return []Language{Python, HTML, CSS, JavaScript}
}

var extensions = map[string]Language{
	".py":   Python,
	".html": HTML,
	".htm":  HTML,
	".css":  CSS,
	".js":   JavaScript,
}

// LanguageForFile infers the language from a file name's extension.
func LanguageForFile(name string) (Language, bool) {
	lang, ok := extensions[strings.ToLower(path.Ext(name))]
	return lang, ok
}

// Result is the outcome of one execution. An empty Stderr means absent.
type Result struct {
	Succeeded bool    `json:"succeeded"`
	Stdout    string  `json:"stdout"`
	Stderr    string  `json:"stderr,omitempty"`
	Elapsed   float64 `json:"elapsed"`
	Artifact  string  `json:"artifact,omitempty"`
}

// Runner executes source for a single language. Implementations never
// return errors: every failure becomes a failed Result.
type Runner interface {
	Run(ctx context.Context, source string, budget time.Duration) Result
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, source string, budget time.Duration) Result

func (f RunnerFunc) Run(ctx context.Context, source string, budget time.Duration) Result {
	return f(ctx, source, budget)
}

func failed(msg string) Result {
	if msg == "" {
		msg = "execution failed"
	}
	return Result{Succeeded: false, Stderr: msg}
}
