package tree

import "github.com/huzeyfeaktas/python-editor/internal/storage"

// Lookup finds a node by ID.
type Lookup func(id string) (*storage.Node, bool)

// Resolve computes the canonical path of n from its parent:
//
//   - no parent:            name
//   - parent is a root:     parent.Name + "/" + name
//   - otherwise:            parent.Path + "/" + name
//
// A parent reference that lookup cannot resolve degrades to the bare name.
func Resolve(n *storage.Node, lookup Lookup) string {
	if n.IsRoot() || lookup == nil {
		return n.Name
	}
	parent, ok := lookup(n.ParentID)
	if !ok || parent == nil {
		return n.Name
	}
	if !parent.IsRoot() {
		return parent.Path + "/" + n.Name
	}
	return parent.Name + "/" + n.Name
}

// MapLookup indexes nodes by ID.
func MapLookup(nodes []storage.Node) Lookup {
	byID := make(map[string]*storage.Node, len(nodes))
	for i := range nodes {
		byID[nodes[i].ID] = &nodes[i]
	}
	return func(id string) (*storage.Node, bool) {
		n, ok := byID[id]
		return n, ok
	}
}
