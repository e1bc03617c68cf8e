package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/huzeyfeaktas/python-editor/internal/storage"
	"github.com/huzeyfeaktas/python-editor/internal/tree"
)

// OwnerHeader carries the authenticated user id set by the fronting proxy.
const OwnerHeader = "X-Owner-ID"

type ownerKey struct{}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// writeStoreError maps tree errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	var contentErr *storage.ContentError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrInvalidKind), errors.Is(err, storage.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &contentErr):
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   err.Error(),
			"node_id": contentErr.NodeID,
		})
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// --- Owner ---

// requireOwner rejects requests without an owner id.
func requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
		if owner == "" {
			w.Header().Set("Content-Type", "application/json")
			writeError(w, http.StatusUnauthorized, "missing "+OwnerHeader+" header")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, owner)))
	})
}

func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"active_runs": len(s.runs.Active("")),
	})
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Supported())
}

// --- Tree handlers ---

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.tree.ListByOwner(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if nodes == nil {
		nodes = []storage.Node{}
	}
	writeJSON(w, http.StatusOK, nodes)
}

type createFileRequest struct {
	Name     string       `json:"name"`
	Kind     storage.Kind `json:"kind"`
	ParentID string       `json:"parent_id"`
	Content  string       `json:"content"`
	Language string       `json:"language"`
}

func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	var req createFileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Kind == "" {
		req.Kind = storage.KindFile
	}

	n, err := s.tree.Create(r.Context(), tree.CreateParams{
		Owner:    ownerFrom(r.Context()),
		ParentID: req.ParentID,
		Name:     req.Name,
		Kind:     req.Kind,
		Content:  req.Content,
		Language: req.Language,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

type createProjectRequest struct {
	Name     string `json:"name"`
	Language string `json:"language"`
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.tree.ListProjects(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if projects == nil {
		projects = []storage.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	bundle, err := s.tree.CreateProject(r.Context(), ownerFrom(r.Context()), req.Name, req.Language)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bundle)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())
	n, err := s.tree.Read(r.Context(), chi.URLParam(r, "id"), owner)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if n.Kind == storage.KindFile {
		content, err := s.tree.ReadContent(r.Context(), n.ID, owner)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		n.Content = content
	}
	writeJSON(w, http.StatusOK, n)
}

type updateFileRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleUpdateFile(w http.ResponseWriter, r *http.Request) {
	var req updateFileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	owner, id := ownerFrom(r.Context()), chi.URLParam(r, "id")
	if err := s.tree.WriteContent(r.Context(), id, owner, req.Content); err != nil {
		writeStoreError(w, err)
		return
	}
	n, err := s.tree.Read(r.Context(), id, owner)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := s.tree.Delete(r.Context(), chi.URLParam(r, "id"), ownerFrom(r.Context())); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type renameRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleRenameFile(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	owner, id := ownerFrom(r.Context()), chi.URLParam(r, "id")
	if err := s.tree.Rename(r.Context(), id, owner, req.Name); err != nil {
		writeStoreError(w, err)
		return
	}
	n, err := s.tree.Read(r.Context(), id, owner)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleListProject(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.tree.ListByProject(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := s.tree.Reconcile(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())
	n, err := s.tree.Read(r.Context(), chi.URLParam(r, "id"), owner)
	if err == nil && n.Kind != storage.KindFile {
		err = fmt.Errorf("cannot download a %s: %w", n.Kind, storage.ErrInvalidKind)
	}
	var content string
	if err == nil {
		content, err = s.tree.ReadContent(r.Context(), n.ID, owner)
	}
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": n.Name}))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(content))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = tree.FormatMarkdown
	}
	data, err := s.tree.Export(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id"), format)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKind) || errors.Is(err, storage.ErrStorageFailure) {
			writeStoreError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if format == tree.FormatJSON {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
