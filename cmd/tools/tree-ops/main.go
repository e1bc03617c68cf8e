package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/huzeyfeaktas/python-editor/internal/app"
	"github.com/huzeyfeaktas/python-editor/internal/config"
	"github.com/huzeyfeaktas/python-editor/internal/storage"
	"github.com/huzeyfeaktas/python-editor/internal/tree"
)

// treeOps serves one owner's tree. The owner comes from CODEPAD_OWNER.
type treeOps struct {
	tree  *tree.Service
	owner string
}

func main() {
	cfg, err := config.Load(os.Getenv("CODEPAD_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	owner := os.Getenv("CODEPAD_OWNER")
	if owner == "" {
		fmt.Fprintln(os.Stderr, "CODEPAD_OWNER is required")
		os.Exit(1)
	}
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	tr, err := app.OpenTree(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer tr.Close()

	s := server.NewMCPServer("codepad-tree-ops", "0.1.0")
	(&treeOps{tree: tr.Service, owner: owner}).register(s)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
	}
}

func (o *treeOps) register(s *server.MCPServer) {
	s.AddTool(mcp.Tool{
		Name:        "node_list",
		Description: "List the owner's projects, folders and files. Optionally limit to one project.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"project_id": map[string]any{
					"type":        "string",
					"description": "Only list nodes of this project (optional)",
				},
			},
		},
	}, o.handleNodeList)

	s.AddTool(mcp.Tool{
		Name:        "node_read",
		Description: "Read the contents of a file node. Optionally specify a line range.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"id": map[string]any{
					"type":        "string",
					"description": "ID of the file node",
				},
				"start_line": map[string]any{
					"type":        "integer",
					"description": "First line to read (1-based, optional)",
				},
				"end_line": map[string]any{
					"type":        "integer",
					"description": "Last line to read (1-based, inclusive, optional)",
				},
			},
			Required: []string{"id"},
		},
	}, o.handleNodeRead)

	s.AddTool(mcp.Tool{
		Name:        "node_write",
		Description: "Replace the content of an existing file node.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"id": map[string]any{
					"type":        "string",
					"description": "ID of the file node",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "New content",
				},
			},
			Required: []string{"id", "content"},
		},
	}, o.handleNodeWrite)

	s.AddTool(mcp.Tool{
		Name:        "node_create",
		Description: "Create a project, folder or file. Folders and files go under a parent project or folder.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "Name of the new node (no slashes)",
				},
				"kind": map[string]any{
					"type":        "string",
					"description": "project, folder or file (default file)",
				},
				"parent_id": map[string]any{
					"type":        "string",
					"description": "Parent project or folder ID (optional)",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Initial file content (optional)",
				},
			},
			Required: []string{"name"},
		},
	}, o.handleNodeCreate)

	s.AddTool(mcp.Tool{
		Name:        "project_export",
		Description: "Export a whole project as markdown or JSON.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"project_id": map[string]any{
					"type":        "string",
					"description": "ID of the project",
				},
				"format": map[string]any{
					"type":        "string",
					"description": "md (default) or json",
				},
			},
			Required: []string{"project_id"},
		},
	}, o.handleProjectExport)
}

func getArgs(request mcp.CallToolRequest) map[string]any {
	args, _ := request.Params.Arguments.(map[string]any)
	return args
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
	}
}

func errResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: true,
	}
}

func storeErr(err error) *mcp.CallToolResult {
	if errors.Is(err, storage.ErrNotFound) {
		return errResult("error: node not found")
	}
	return errResult(fmt.Sprintf("error: %v", err))
}

func (o *treeOps) handleNodeList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, _ := getArgs(request)["project_id"].(string)

	var nodes []storage.Node
	var err error
	if projectID != "" {
		nodes, err = o.tree.ListByProject(ctx, o.owner, projectID)
	} else {
		nodes, err = o.tree.ListByOwner(ctx, o.owner)
	}
	if err != nil {
		return storeErr(err), nil
	}
	if len(nodes) == 0 {
		return textResult("(no nodes)"), nil
	}

	lines := make([]string, 0, len(nodes))
	for _, n := range nodes {
		path := n.Path
		if n.Kind.IsContainer() {
			path += "/"
		}
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s", n.ID, n.Kind, path))
	}
	return textResult(strings.Join(lines, "\n")), nil
}

func (o *treeOps) handleNodeRead(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	id, _ := args["id"].(string)
	if id == "" {
		return errResult("error: 'id' is required"), nil
	}

	content, err := o.tree.ReadContent(ctx, id, o.owner)
	if err != nil {
		return storeErr(err), nil
	}

	// Handle optional line range
	startLine, hasStart := toInt(args["start_line"])
	endLine, hasEnd := toInt(args["end_line"])

	if hasStart || hasEnd {
		lines := strings.Split(content, "\n")
		if !hasStart {
			startLine = 1
		}
		if !hasEnd {
			endLine = len(lines)
		}
		// Clamp to valid range
		if startLine < 1 {
			startLine = 1
		}
		if endLine > len(lines) {
			endLine = len(lines)
		}
		if startLine > endLine {
			return errResult("error: start_line > end_line"), nil
		}
		content = strings.Join(lines[startLine-1:endLine], "\n")
	}

	return textResult(content), nil
}

func (o *treeOps) handleNodeWrite(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	id, _ := args["id"].(string)
	content, ok := args["content"].(string)
	if id == "" || !ok {
		return errResult("error: 'id' and 'content' are required"), nil
	}

	if err := o.tree.WriteContent(ctx, id, o.owner, content); err != nil {
		return storeErr(err), nil
	}
	return textResult(fmt.Sprintf("wrote %d bytes to %s", len(content), id)), nil
}

func (o *treeOps) handleNodeCreate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	name, _ := args["name"].(string)
	kind, _ := args["kind"].(string)
	parentID, _ := args["parent_id"].(string)
	content, _ := args["content"].(string)
	if name == "" {
		return errResult("error: 'name' is required"), nil
	}
	if kind == "" {
		kind = string(storage.KindFile)
	}

	if storage.Kind(kind) == storage.KindProject {
		bundle, err := o.tree.CreateProject(ctx, o.owner, name, "")
		if err != nil {
			return storeErr(err), nil
		}
		return textResult(fmt.Sprintf("created project %s (%s) with %s", bundle.Project.Path, bundle.Project.ID, bundle.EntryFile.Path)), nil
	}

	n, err := o.tree.Create(ctx, tree.CreateParams{
		Owner:    o.owner,
		ParentID: parentID,
		Name:     name,
		Kind:     storage.Kind(kind),
		Content:  content,
	})
	if err != nil {
		return storeErr(err), nil
	}
	return textResult(fmt.Sprintf("created %s %s (%s)", n.Kind, n.Path, n.ID)), nil
}

func (o *treeOps) handleProjectExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	projectID, _ := args["project_id"].(string)
	format, _ := args["format"].(string)
	if projectID == "" {
		return errResult("error: 'project_id' is required"), nil
	}
	if format == "" {
		format = tree.FormatMarkdown
	}

	data, err := o.tree.Export(ctx, o.owner, projectID, format)
	if err != nil {
		return storeErr(err), nil
	}
	return textResult(string(data)), nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}
