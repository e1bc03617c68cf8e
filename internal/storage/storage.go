package storage

import (
	"context"
	"time"
)

// Kind is the type of a tree node.
type Kind string

const (
	KindProject Kind = "project"
	KindFolder  Kind = "folder"
	KindFile    Kind = "file"
)

// Valid reports whether k is one of the known node kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindProject, KindFolder, KindFile:
		return true
	}
	return false
}

// IsContainer reports whether nodes of this kind may have children.
func (k Kind) IsContainer() bool {
	return k == KindProject || k == KindFolder
}

// Node is one entity of a user's project tree.
type Node struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	ProjectID string    `json:"project_id,omitempty"`
	Kind      Kind      `json:"kind"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	ParentID  string    `json:"parent_id,omitempty"`
	Content   string    `json:"content,omitempty"`
	Language  string    `json:"language,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool {
	return n.ParentID == ""
}

// Project is the registry entry kept alongside a project root node.
// Its ID always equals the ID of the project node.
type Project struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PathUpdate assigns a new stored path to a node.
type PathUpdate struct {
	ID   string
	Path string
}

// Store is the durable metadata store for tree nodes and project entries.
type Store interface {
	// InsertNode writes a new node record. When project is non-nil its
	// registry entry is written in the same transaction.
	InsertNode(ctx context.Context, n *Node, project *Project) error

	// GetNode returns a node by ID or ErrNotFound.
	GetNode(ctx context.Context, id string) (*Node, error)

	// GetProject returns a project registry entry by ID or ErrNotFound.
	GetProject(ctx context.Context, id string) (*Project, error)

	// UpdateContent overwrites the content of a node.
	UpdateContent(ctx context.Context, id, content string, at time.Time) error

	// RenameNode sets a node's name and rewrites the stored paths listed
	// in paths, all in one transaction.
	RenameNode(ctx context.Context, id, name string, paths []PathUpdate, at time.Time) error

	// Descendants returns every node below id, parents before children.
	Descendants(ctx context.Context, id string) ([]Node, error)

	// DeleteNodes removes the listed nodes and, when projectID is not
	// empty, the project registry entry, all in one transaction.
	DeleteNodes(ctx context.Context, ids []string, projectID string) error

	// ListByOwner returns the owner's nodes in insertion order.
	ListByOwner(ctx context.Context, ownerID string) ([]Node, error)

	// ListByProject returns the nodes whose project reference is projectID.
	ListByProject(ctx context.Context, projectID string) ([]Node, error)

	// ListProjects returns the owner's project registry entries.
	ListProjects(ctx context.Context, ownerID string) ([]Project, error)

	// Close releases resources.
	Close() error
}

// ContentStore is the byte store that mirrors file nodes on disk.
// Paths are slash separated and relative to the store root.
type ContentStore interface {
	WriteFile(path string, data []byte) error
	ReadFile(path string) ([]byte, error)
	MkdirAll(path string) error
	Rename(from, to string) error
	Remove(path string) error
	RemoveAll(path string) error
	Exists(path string) (bool, error)
}
