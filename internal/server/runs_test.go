package server

import (
	"context"
	"testing"

	"github.com/huzeyfeaktas/python-editor/internal/runner"
)

func TestRunManager_BeginAndEnd(t *testing.T) {
	rm := NewRunManager()
	defer rm.CloseAll()

	run, ctx, end := rm.Begin(context.Background(), "alice", runner.Python)
	if run.ID == "" {
		t.Fatal("expected a run id")
	}
	if _, ok := rm.Get(run.ID); !ok {
		t.Fatal("expected run to be tracked")
	}

	end()

	if _, ok := rm.Get(run.ID); ok {
		t.Error("expected run to be forgotten after end")
	}
	if ctx.Err() == nil {
		t.Error("expected run context to be released")
	}
}

func TestRunManager_CancelChecksOwner(t *testing.T) {
	rm := NewRunManager()
	defer rm.CloseAll()

	run, ctx, end := rm.Begin(context.Background(), "alice", runner.Python)
	defer end()

	if rm.Cancel(run.ID, "mallory") {
		t.Error("expected cancel by another owner to be refused")
	}
	if ctx.Err() != nil {
		t.Fatal("run cancelled by the wrong owner")
	}
	if !rm.Cancel(run.ID, "alice") {
		t.Error("expected owner cancel to succeed")
	}
	if ctx.Err() == nil {
		t.Error("expected run context to be cancelled")
	}
	if rm.Cancel("missing", "alice") {
		t.Error("expected cancel of unknown run to fail")
	}
}

func TestRunManager_Active(t *testing.T) {
	rm := NewRunManager()
	defer rm.CloseAll()

	_, _, endA := rm.Begin(context.Background(), "alice", runner.Python)
	defer endA()
	_, _, endB := rm.Begin(context.Background(), "bob", runner.HTML)
	defer endB()

	if got := len(rm.Active("alice")); got != 1 {
		t.Errorf("alice runs = %d, want 1", got)
	}
	if got := len(rm.Active("")); got != 2 {
		t.Errorf("all runs = %d, want 2", got)
	}
}

func TestRunManager_CloseAll(t *testing.T) {
	rm := NewRunManager()

	var ctxs []context.Context
	for i := 0; i < 3; i++ {
		_, ctx, _ := rm.Begin(context.Background(), "alice", runner.Python)
		ctxs = append(ctxs, ctx)
	}

	rm.CloseAll()

	if got := len(rm.Active("")); got != 0 {
		t.Errorf("expected all runs to be cleared, %d left", got)
	}
	for i, ctx := range ctxs {
		if ctx.Err() == nil {
			t.Errorf("run %d not cancelled", i)
		}
	}
}
