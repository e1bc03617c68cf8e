package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultBudget is used when neither the caller nor the configuration
// supplies a positive budget.
const DefaultBudget = 30 * time.Second

// EngineConfig holds engine-wide execution settings.
type EngineConfig struct {
	DefaultBudget time.Duration
	MaxConcurrent int64 // process executions running at once; <= 0 means unbounded
}

// Engine dispatches executions to the Runner registered for a language.
type Engine struct {
	runners map[Language]Runner
	budget  time.Duration
	slots   *semaphore.Weighted
	log     *slog.Logger
}

// processRunner marks runners that launch a child process. Only those take
// a concurrency slot.
type processRunner interface {
	launchesProcess()
}

// NewEngine creates an engine with no runners registered.
func NewEngine(cfg EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	budget := cfg.DefaultBudget
	if budget <= 0 {
		budget = DefaultBudget
	}
	e := &Engine{
		runners: make(map[Language]Runner),
		budget:  budget,
		log:     logger,
	}
	if cfg.MaxConcurrent > 0 {
		e.slots = semaphore.NewWeighted(cfg.MaxConcurrent)
	}
	return e
}

// Register binds a runner to a language, replacing any previous one.
func (e *Engine) Register(lang Language, r Runner) {
	e.runners[lang] = r
}

// Supported lists the registered languages in name order.
func (e *Engine) Supported() []Language {
	langs := make([]Language, 0, len(e.runners))
	for l := range e.runners {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}

// Execute runs source with the runner for lang. It never panics and never
// returns an error; unsupported languages and runner failures are reported
// through the Result.
func (e *Engine) Execute(ctx context.Context, lang Language, source string, budget time.Duration) (res Result) {
	r, ok := e.runners[lang]
	if !ok {
		e.log.Warn("unsupported language", "language", string(lang))
		return failed(fmt.Sprintf("unsupported language: %s", lang))
	}
	if budget <= 0 {
		budget = e.budget
	}

	if _, ok := r.(processRunner); ok && e.slots != nil {
		// The wait for a slot is bounded by the budget as well.
		waitCtx, cancel := context.WithTimeout(ctx, budget)
		err := e.slots.Acquire(waitCtx, 1)
		cancel()
		if err != nil {
			if ctx.Err() == nil {
				e.log.Warn("no execution slot within budget", "language", string(lang), "budget", budget)
				return Result{Succeeded: false, Stderr: timeoutMessage(budget), Elapsed: budget.Seconds()}
			}
			return failed(fmt.Sprintf("waiting for an execution slot: %v", err))
		}
		defer e.slots.Release(1)
	}

	defer func() {
		if p := recover(); p != nil {
			e.log.Error("runner panicked", "language", string(lang), "panic", p)
			res = failed(fmt.Sprintf("internal error: %v", p))
		}
	}()

	res = r.Run(ctx, source, budget)
	e.log.Info("execution finished",
		"language", string(lang),
		"succeeded", res.Succeeded,
		"elapsed", res.Elapsed,
	)
	return res
}
