// Package tree owns the project/folder/file hierarchy. Every operation
// writes the metadata store first and the content store second; a failing
// second write surfaces as *storage.ContentError.
package tree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/huzeyfeaktas/python-editor/internal/storage"
)

const defaultLanguage = "python"

// Service implements the tree operations for one metadata store and one
// content store. Ownership is checked on every lookup.
type Service struct {
	store   storage.Store
	content storage.ContentStore
	log     *slog.Logger
	now     func() time.Time
	newID   func() string
}

// New creates a Service.
func New(store storage.Store, content storage.ContentStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		content: content,
		log:     logger,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.New().String() },
	}
}

// CreateParams describes a new node.
type CreateParams struct {
	Owner    string
	ParentID string
	Name     string
	Kind     storage.Kind
	Content  string
	Language string
}

// Create adds a node under ParentID (or at the top level). A taken path is
// storage.ErrConflict. When the content write fails the committed node is returned together with a
// *storage.ContentError so the caller may roll it back.
func (s *Service) Create(ctx context.Context, p CreateParams) (*storage.Node, error) {
	if !p.Kind.Valid() {
		return nil, fmt.Errorf("kind %q: %w", p.Kind, storage.ErrInvalidKind)
	}
	if err := validateName(p.Name); err != nil {
		return nil, err
	}

	var parent *storage.Node
	if p.ParentID != "" {
		var err error
		parent, err = s.Read(ctx, p.ParentID, p.Owner)
		if err != nil {
			return nil, err
		}
		if !parent.Kind.IsContainer() {
			return nil, fmt.Errorf("parent %s is a %s: %w", parent.ID, parent.Kind, storage.ErrInvalidKind)
		}
		if p.Kind == storage.KindProject {
			return nil, fmt.Errorf("a project cannot have a parent: %w", storage.ErrInvalidKind)
		}
	}

	now := s.now()
	n := &storage.Node{
		ID:        s.newID(),
		OwnerID:   p.Owner,
		Kind:      p.Kind,
		Name:      p.Name,
		ParentID:  p.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p.Kind == storage.KindFile {
		n.Content = p.Content
		n.Language = p.Language
		if n.Language == "" {
			n.Language = defaultLanguage
		}
	}
	n.Path = Resolve(n, func(id string) (*storage.Node, bool) {
		return parent, parent != nil && parent.ID == id
	})
	n.ProjectID = projectRef(n, parent)

	var project *storage.Project
	if p.Kind == storage.KindProject {
		lang := p.Language
		if lang == "" {
			lang = defaultLanguage
		}
		project = &storage.Project{
			ID:        n.ID,
			OwnerID:   p.Owner,
			Name:      p.Name,
			Language:  lang,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	if err := s.store.InsertNode(ctx, n, project); err != nil {
		return nil, err
	}

	if err := s.materialize(n); err != nil {
		return n, s.contentErr("create", n, err)
	}
	return n, nil
}

// Read returns the node if it exists and belongs to owner.
func (s *Service) Read(ctx context.Context, id, owner string) (*storage.Node, error) {
	n, err := s.store.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.OwnerID != owner {
		return nil, fmt.Errorf("node %s: %w", id, storage.ErrNotFound)
	}
	return n, nil
}

// ReadContent returns a file's content. The metadata copy wins when it is
// non-empty; otherwise the content store is read. A missing content entry
// reads as empty. Nothing read from disk is written back to metadata.
func (s *Service) ReadContent(ctx context.Context, id, owner string) (string, error) {
	n, err := s.Read(ctx, id, owner)
	if err != nil {
		return "", err
	}
	if n.Kind != storage.KindFile {
		return "", fmt.Errorf("cannot read content of a %s: %w", n.Kind, storage.ErrInvalidKind)
	}
	if n.Content != "" {
		return n.Content, nil
	}

	p := contentPath(n)
	ok, err := s.content.Exists(p)
	if err != nil {
		return "", storage.Failure("reading content", err)
	}
	if !ok {
		return "", nil
	}
	data, err := s.content.ReadFile(p)
	if err != nil {
		return "", storage.Failure("reading content", err)
	}
	return string(data), nil
}

// WriteContent replaces a file's content in both stores.
func (s *Service) WriteContent(ctx context.Context, id, owner, content string) error {
	n, err := s.Read(ctx, id, owner)
	if err != nil {
		return err
	}
	if n.Kind != storage.KindFile {
		return fmt.Errorf("cannot write content of a %s: %w", n.Kind, storage.ErrInvalidKind)
	}

	if err := s.store.UpdateContent(ctx, n.ID, content, s.now()); err != nil {
		return err
	}
	if err := s.content.WriteFile(contentPath(n), []byte(content)); err != nil {
		return s.contentErr("write", n, err)
	}
	return nil
}

// Rename changes a node's name. The stored paths of the node and of every
// descendant are recomputed in one metadata transaction, then the content
// entry is moved.
func (s *Service) Rename(ctx context.Context, id, owner, newName string) error {
	if err := validateName(newName); err != nil {
		return err
	}
	n, err := s.Read(ctx, id, owner)
	if err != nil {
		return err
	}

	var parent *storage.Node
	if n.ParentID != "" {
		parent, err = s.store.GetNode(ctx, n.ParentID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
	}

	renamed := *n
	renamed.Name = newName
	renamed.Path = Resolve(&renamed, func(id string) (*storage.Node, bool) {
		return parent, parent != nil && parent.ID == id
	})

	desc, err := s.store.Descendants(ctx, n.ID)
	if err != nil {
		return err
	}

	// Descendants come parents first, so each lookup sees its parent's new path.
	updated := map[string]*storage.Node{renamed.ID: &renamed}
	lookup := func(id string) (*storage.Node, bool) {
		p, ok := updated[id]
		return p, ok
	}
	paths := []storage.PathUpdate{{ID: renamed.ID, Path: renamed.Path}}
	for i := range desc {
		d := &desc[i]
		d.Path = Resolve(d, lookup)
		updated[d.ID] = d
		paths = append(paths, storage.PathUpdate{ID: d.ID, Path: d.Path})
	}

	if err := s.store.RenameNode(ctx, n.ID, newName, paths, s.now()); err != nil {
		return err
	}

	if err := s.content.Rename(contentPath(n), contentPath(&renamed)); err != nil {
		return s.contentErr("rename", &renamed, err)
	}
	return nil
}

// Delete removes a node. Folders and projects take their whole subtree
// with them; a project also loses its registry entry.
func (s *Service) Delete(ctx context.Context, id, owner string) error {
	n, err := s.Read(ctx, id, owner)
	if err != nil {
		return err
	}

	ids := []string{n.ID}
	if n.Kind.IsContainer() {
		desc, err := s.store.Descendants(ctx, n.ID)
		if err != nil {
			return err
		}
		for _, d := range desc {
			ids = append(ids, d.ID)
		}
	}

	var projectID string
	if n.Kind == storage.KindProject {
		projectID = n.ID
	}

	if err := s.store.DeleteNodes(ctx, ids, projectID); err != nil {
		return err
	}

	p := contentPath(n)
	if n.Kind.IsContainer() {
		err = s.content.RemoveAll(p)
	} else {
		err = s.content.Remove(p)
	}
	if err != nil {
		return s.contentErr("delete", n, err)
	}
	return nil
}

// ListByOwner returns every node owned by owner.
func (s *Service) ListByOwner(ctx context.Context, owner string) ([]storage.Node, error) {
	return s.store.ListByOwner(ctx, owner)
}

// ListProjects returns the owner's project registry entries.
func (s *Service) ListProjects(ctx context.Context, owner string) ([]storage.Project, error) {
	return s.store.ListProjects(ctx, owner)
}

// ListByProject returns a project's nodes, root first. The project must
// belong to owner.
func (s *Service) ListByProject(ctx context.Context, owner, projectID string) ([]storage.Node, error) {
	root, err := s.Read(ctx, projectID, owner)
	if err != nil {
		return nil, err
	}
	if root.Kind != storage.KindProject {
		return nil, fmt.Errorf("node %s is a %s: %w", root.ID, root.Kind, storage.ErrInvalidKind)
	}

	nodes, err := s.store.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := []storage.Node{*root}
	for _, n := range nodes {
		if n.ID != root.ID {
			out = append(out, n)
		}
	}
	return out, nil
}

// ProjectBundle is the result of CreateProject.
type ProjectBundle struct {
	Project   *storage.Node `json:"project"`
	EntryFile *storage.Node `json:"main_file"`
}

var starterFiles = map[string]struct {
	name    string
	content func(project string) string
}{
	"python": {"main.py", func(p string) string {
		return fmt.Sprintf("# %s\nprint(\"Hello, %s!\")\n", p, p)
	}},
	"html": {"index.html", func(p string) string {
		return fmt.Sprintf("<!DOCTYPE html>\n<html>\n<head><title>%s</title></head>\n<body>\n<h1>%s</h1>\n</body>\n</html>\n", p, p)
	}},
	"css": {"style.css", func(p string) string {
		return fmt.Sprintf("/* %s */\n.container {\n    padding: 16px;\n}\n", p)
	}},
	"javascript": {"main.js", func(p string) string {
		return fmt.Sprintf("// %s\nconsole.log(\"Hello, %s!\");\n", p, p)
	}},
}

// CreateProject creates a project root and its starter file.
func (s *Service) CreateProject(ctx context.Context, owner, name, language string) (*ProjectBundle, error) {
	if language == "" {
		language = defaultLanguage
	}
	starter, ok := starterFiles[language]
	if !ok {
		starter = starterFiles[defaultLanguage]
	}

	root, err := s.Create(ctx, CreateParams{
		Owner:    owner,
		Name:     name,
		Kind:     storage.KindProject,
		Language: language,
	})
	if err != nil {
		return nil, err
	}

	entry, err := s.Create(ctx, CreateParams{
		Owner:    owner,
		ParentID: root.ID,
		Name:     starter.name,
		Kind:     storage.KindFile,
		Content:  starter.content(name),
		Language: language,
	})
	if err != nil {
		return &ProjectBundle{Project: root}, err
	}

	return &ProjectBundle{Project: root, EntryFile: entry}, nil
}

func (s *Service) materialize(n *storage.Node) error {
	if n.Kind == storage.KindFile {
		return s.content.WriteFile(contentPath(n), []byte(n.Content))
	}
	return s.content.MkdirAll(contentPath(n))
}

func (s *Service) contentErr(op string, n *storage.Node, err error) error {
	s.log.Warn("content store out of sync with metadata",
		"op", op, "node", n.ID, "path", n.Path, "error", err)
	return &storage.ContentError{Op: op, Path: n.Path, NodeID: n.ID, Err: err}
}

// projectRef is the project a new node belongs to.
func projectRef(n, parent *storage.Node) string {
	switch {
	case n.Kind == storage.KindProject:
		return n.ID
	case parent == nil:
		return ""
	case parent.Kind == storage.KindProject:
		return parent.ID
	default:
		return parent.ProjectID
	}
}

func contentPath(n *storage.Node) string {
	return n.OwnerID + "/" + n.Path
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required: %w", storage.ErrInvalidName)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("name %q: %w", name, storage.ErrInvalidName)
	}
	return nil
}
