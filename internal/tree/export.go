package tree

import (
	"context"
	"fmt"
	"sort"

	"github.com/huzeyfeaktas/python-editor/internal/storage"
)

// Export formats.
const (
	FormatMarkdown = "md"
	FormatJSON     = "json"
)

// Snapshot returns a project's root and all of its nodes ordered by path,
// with file contents loaded through ReadContent.
func (s *Service) Snapshot(ctx context.Context, owner, projectID string) (*storage.Node, []storage.Node, error) {
	nodes, err := s.ListByProject(ctx, owner, projectID)
	if err != nil {
		return nil, nil, err
	}
	rest := nodes[1:]
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].Path < rest[j].Path })

	for i := range nodes {
		if nodes[i].Kind != storage.KindFile {
			continue
		}
		content, err := s.ReadContent(ctx, nodes[i].ID, owner)
		if err != nil {
			return nil, nil, err
		}
		nodes[i].Content = content
	}
	root := nodes[0]
	return &root, nodes, nil
}

// Export renders a project snapshot as markdown or JSON.
func (s *Service) Export(ctx context.Context, owner, projectID, format string) ([]byte, error) {
	root, nodes, err := s.Snapshot(ctx, owner, projectID)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatJSON:
		return storage.ExportJSON(root, nodes)
	case FormatMarkdown, "":
		return []byte(storage.ExportMarkdown(root, nodes)), nil
	}
	return nil, fmt.Errorf("unknown export format %q", format)
}
