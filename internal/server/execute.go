package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/huzeyfeaktas/python-editor/internal/runner"
)

type executeRequest struct {
	Language string  `json:"language"`
	Code     string  `json:"code"`
	Timeout  float64 `json:"timeout"` // seconds; 0 uses the configured default
}

func (req executeRequest) budget() time.Duration {
	return time.Duration(req.Timeout * float64(time.Second))
}

func (req executeRequest) language() runner.Language {
	if req.Language == "" {
		return runner.Python
	}
	return runner.Language(req.Language)
}

type executeResponse struct {
	RunID  string        `json:"run_id"`
	Result runner.Result `json:"result"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	if req.Timeout < 0 {
		writeError(w, http.StatusBadRequest, "timeout must not be negative")
		return
	}

	run, ctx, end := s.runs.Begin(r.Context(), ownerFrom(r.Context()), req.language())
	defer end()

	result := s.engine.Execute(ctx, run.Language, req.Code, req.budget())
	writeJSON(w, http.StatusOK, executeResponse{RunID: run.ID, Result: result})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runs.Active(ownerFrom(r.Context())))
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	if !s.runs.Cancel(chi.URLParam(r, "id"), ownerFrom(r.Context())) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleArtifact serves a rendered document so remote clients can display
// what the render runners produced.
func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	path, err := runner.ArtifactPath(s.cfg.Render.Dir, chi.URLParam(r, "name"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, path)
}
