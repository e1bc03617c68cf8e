package main

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huzeyfeaktas/python-editor/internal/storage/content"
	"github.com/huzeyfeaktas/python-editor/internal/storage/sqlite"
	"github.com/huzeyfeaktas/python-editor/internal/tree"
)

func newTreeOps(t *testing.T, owner string) *treeOps {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return &treeOps{tree: tree.New(store, content.NewMemory(), nil), owner: owner}
}

type handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func invoke(t *testing.T, h handler, args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

// idOf returns the id of the listed node with the given path.
func idOf(t *testing.T, o *treeOps, path string) string {
	t.Helper()
	listing, isErr := invoke(t, o.handleNodeList, nil)
	require.False(t, isErr, listing)
	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Split(line, "\t")
		if strings.TrimSuffix(fields[2], "/") == path {
			return fields[0]
		}
	}
	t.Fatalf("no node with path %s in:\n%s", path, listing)
	return ""
}

func TestCreateListReadWrite(t *testing.T) {
	o := newTreeOps(t, "alice")

	text, isErr := invoke(t, o.handleNodeCreate, map[string]any{"name": "demo", "kind": "project"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "demo/main.py")

	projectID := idOf(t, o, "demo")
	text, isErr = invoke(t, o.handleNodeCreate, map[string]any{"name": "lib", "kind": "folder", "parent_id": projectID})
	require.False(t, isErr, text)
	text, isErr = invoke(t, o.handleNodeCreate, map[string]any{
		"name": "util.py", "parent_id": idOf(t, o, "demo/lib"), "content": "a\nb\nc\n",
	})
	require.False(t, isErr, text)

	listing, _ := invoke(t, o.handleNodeList, map[string]any{"project_id": projectID})
	assert.Contains(t, listing, "\tfolder\tdemo/lib/")
	assert.Contains(t, listing, "\tfile\tdemo/lib/util.py")

	fileID := idOf(t, o, "demo/lib/util.py")
	text, _ = invoke(t, o.handleNodeRead, map[string]any{"id": fileID, "start_line": 2, "end_line": 3.0})
	assert.Equal(t, "b\nc", text)

	text, isErr = invoke(t, o.handleNodeWrite, map[string]any{"id": fileID, "content": "z"})
	require.False(t, isErr, text)
	text, _ = invoke(t, o.handleNodeRead, map[string]any{"id": fileID})
	assert.Equal(t, "z", text)
}

func TestOtherOwnersNodesAreHidden(t *testing.T) {
	alice := newTreeOps(t, "alice")
	invoke(t, alice.handleNodeCreate, map[string]any{"name": "notes.py", "content": "secret"})
	id := idOf(t, alice, "notes.py")

	mallory := &treeOps{tree: alice.tree, owner: "mallory"}
	text, isErr := invoke(t, mallory.handleNodeRead, map[string]any{"id": id})
	assert.True(t, isErr)
	assert.Equal(t, "error: node not found", text)

	text, _ = invoke(t, mallory.handleNodeList, nil)
	assert.Equal(t, "(no nodes)", text)
}

func TestCreateRejectsBadInput(t *testing.T) {
	o := newTreeOps(t, "alice")

	_, isErr := invoke(t, o.handleNodeCreate, map[string]any{})
	assert.True(t, isErr)

	_, isErr = invoke(t, o.handleNodeCreate, map[string]any{"name": "a/b"})
	assert.True(t, isErr)

	_, isErr = invoke(t, o.handleNodeCreate, map[string]any{"name": "x", "kind": "link"})
	assert.True(t, isErr)
}

func TestReadRange(t *testing.T) {
	o := newTreeOps(t, "alice")
	invoke(t, o.handleNodeCreate, map[string]any{"name": "f.py", "content": "1\n2\n3"})
	id := idOf(t, o, "f.py")

	text, isErr := invoke(t, o.handleNodeRead, map[string]any{"id": id, "start_line": 3, "end_line": 1})
	assert.True(t, isErr)
	assert.Equal(t, "error: start_line > end_line", text)

	text, _ = invoke(t, o.handleNodeRead, map[string]any{"id": id, "start_line": "2", "end_line": 99})
	assert.Equal(t, "2\n3", text)
}

func TestProjectExport(t *testing.T) {
	o := newTreeOps(t, "alice")
	invoke(t, o.handleNodeCreate, map[string]any{"name": "demo", "kind": "project"})
	id := idOf(t, o, "demo")

	text, isErr := invoke(t, o.handleProjectExport, map[string]any{"project_id": id})
	require.False(t, isErr, text)
	assert.Contains(t, text, "## demo/main.py")

	text, isErr = invoke(t, o.handleProjectExport, map[string]any{"project_id": id, "format": "json"})
	require.False(t, isErr, text)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(text), "{"))

	_, isErr = invoke(t, o.handleProjectExport, map[string]any{"project_id": id, "format": "xml"})
	assert.True(t, isErr)
}

func TestToolsOverMCP(t *testing.T) {
	o := newTreeOps(t, "alice")
	s := server.NewMCPServer("codepad-tree-ops", "test")
	o.register(s)

	c, err := client.NewInProcessClient(s)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	_, err = c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo:      mcp.Implementation{Name: "codepad-test", Version: "0.1.0"},
		},
	})
	require.NoError(t, err)

	tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"node_list", "node_read", "node_write", "node_create", "project_export"}, names)

	var req mcp.CallToolRequest
	req.Params.Name = "node_create"
	req.Params.Arguments = map[string]any{"name": "hello.py", "content": "print('hi')\n"}
	res, err := c.CallTool(ctx, req)
	require.NoError(t, err)
	assert.False(t, res.IsError)

	req.Params.Name = "node_list"
	req.Params.Arguments = map[string]any{}
	res, err = c.CallTool(ctx, req)
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "\tfile\thello.py")
}
