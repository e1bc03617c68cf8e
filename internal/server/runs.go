package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/huzeyfeaktas/python-editor/internal/runner"
)

// ActiveRun tracks one in-flight execution.
type ActiveRun struct {
	ID       string          `json:"id"`
	Owner    string          `json:"owner"`
	Language runner.Language `json:"language"`
	Started  time.Time       `json:"started"`
	cancel   context.CancelFunc
}

// RunManager tracks executions that are currently running so they can be
// cancelled individually or all at once on shutdown.
type RunManager struct {
	mu   sync.RWMutex
	runs map[string]*ActiveRun
}

// NewRunManager creates an empty RunManager.
func NewRunManager() *RunManager {
	return &RunManager{
		runs: make(map[string]*ActiveRun),
	}
}

// Begin registers a run derived from parent. The returned end func must be
// called when the run finishes; it releases the run's context.
func (rm *RunManager) Begin(parent context.Context, owner string, lang runner.Language) (*ActiveRun, context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	run := &ActiveRun{
		ID:       uuid.NewString(),
		Owner:    owner,
		Language: lang,
		Started:  time.Now().UTC(),
		cancel:   cancel,
	}

	rm.mu.Lock()
	rm.runs[run.ID] = run
	rm.mu.Unlock()

	end := func() {
		cancel()
		rm.mu.Lock()
		delete(rm.runs, run.ID)
		rm.mu.Unlock()
	}
	return run, ctx, end
}

// Get returns an active run if it exists.
func (rm *RunManager) Get(id string) (*ActiveRun, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	run, ok := rm.runs[id]
	return run, ok
}

// Cancel stops the run with the given id if owner started it.
func (rm *RunManager) Cancel(id, owner string) bool {
	run, ok := rm.Get(id)
	if !ok || run.Owner != owner {
		return false
	}
	run.cancel()
	return true
}

// Active returns the owner's in-flight runs, or all runs when owner is "".
func (rm *RunManager) Active(owner string) []ActiveRun {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	out := make([]ActiveRun, 0, len(rm.runs))
	for _, run := range rm.runs {
		if owner == "" || run.Owner == owner {
			out = append(out, *run)
		}
	}
	return out
}

// CloseAll cancels every active run.
func (rm *RunManager) CloseAll() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for id, run := range rm.runs {
		run.cancel()
		delete(rm.runs, id)
	}
}
