package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/huzeyfeaktas/python-editor/internal/app"
	"github.com/huzeyfeaktas/python-editor/internal/storage"
	"github.com/huzeyfeaktas/python-editor/internal/tree"
)

var (
	ownerFlag    string
	kindFilter   string
	limitFlag    int
	exportFormat string
	exportOutput string
	forceFlag    bool
	projectLang  string
)

var nodesCmd = &cobra.Command{
	Use:     "nodes",
	Aliases: []string{"node", "n"},
	Short:   "Manage stored projects, folders and files",
}

var nodesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List an owner's nodes",
	RunE:  runNodesList,
}

var nodesShowCmd = &cobra.Command{
	Use:   "show <node-id>",
	Short: "Show a node; files print their content, projects their layout",
	Args:  cobra.ExactArgs(1),
	RunE:  runNodesShow,
}

var nodesNewProjectCmd = &cobra.Command{
	Use:   "new-project <name>",
	Short: "Create a project with a starter file",
	Args:  cobra.ExactArgs(1),
	RunE:  runNodesNewProject,
}

var nodesDeleteCmd = &cobra.Command{
	Use:   "delete <node-id>",
	Short: "Delete a node and everything below it",
	Args:  cobra.ExactArgs(1),
	RunE:  runNodesDelete,
}

var nodesExportCmd = &cobra.Command{
	Use:   "export <project-id>",
	Short: "Export a project as markdown or JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runNodesExport,
}

var nodesReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Re-create content entries missing from the files directory",
	RunE:  runNodesReconcile,
}

func init() {
	rootCmd.AddCommand(nodesCmd)
	nodesCmd.AddCommand(nodesListCmd, nodesShowCmd, nodesNewProjectCmd, nodesDeleteCmd, nodesExportCmd, nodesReconcileCmd)

	nodesCmd.PersistentFlags().StringVar(&ownerFlag, "owner", defaultOwner(), "Owner id")

	nodesListCmd.Flags().StringVar(&kindFilter, "kind", "", "Filter by kind (project, folder, file)")
	nodesListCmd.Flags().IntVar(&limitFlag, "limit", 50, "Max nodes to show")

	nodesNewProjectCmd.Flags().StringVar(&projectLang, "lang", "python", "Project language")

	nodesExportCmd.Flags().StringVar(&exportFormat, "format", tree.FormatMarkdown, "Export format: md or json")
	nodesExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")

	nodesDeleteCmd.Flags().BoolVar(&forceFlag, "force", false, "Skip confirmation")
}

func defaultOwner() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

func openTree() (*app.Tree, error) {
	cfg, logger, err := setup()
	if err != nil {
		return nil, err
	}
	return app.OpenTree(cfg, logger)
}

// resolveID expands a unique id prefix, as printed by list, to a full id.
func resolveID(ctx context.Context, tr *app.Tree, prefix string) (string, error) {
	nodes, err := tr.ListByOwner(ctx, ownerFlag)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, n := range nodes {
		if n.ID == prefix {
			return n.ID, nil
		}
		if strings.HasPrefix(n.ID, prefix) {
			matches = append(matches, n.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("node %s: %w", prefix, storage.ErrNotFound)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("id prefix %s matches %d nodes", prefix, len(matches))
}

func runNodesList(cmd *cobra.Command, args []string) error {
	tr, err := openTree()
	if err != nil {
		return err
	}
	defer tr.Close()

	nodes, err := tr.ListByOwner(context.Background(), ownerFlag)
	if err != nil {
		return err
	}
	if kindFilter != "" {
		filtered := nodes[:0]
		for _, n := range nodes {
			if string(n.Kind) == kindFilter {
				filtered = append(filtered, n)
			}
		}
		nodes = filtered
	}

	if len(nodes) == 0 {
		fmt.Println("No nodes found.")
		return nil
	}
	if limitFlag > 0 && len(nodes) > limitFlag {
		nodes = nodes[:limitFlag]
	}

	// Header
	fmt.Printf("%-10s %-8s %-50s %s\n", "ID", "KIND", "PATH", "UPDATED")
	fmt.Println(strings.Repeat("─", 85))

	for _, n := range nodes {
		path := n.Path
		if len(path) > 48 {
			path = ".." + path[len(path)-46:]
		}
		fmt.Printf("%-10s %-8s %-50s %s\n", n.ID[:8], n.Kind, path, timeAgo(n.UpdatedAt))
	}

	return nil
}

func runNodesShow(cmd *cobra.Command, args []string) error {
	tr, err := openTree()
	if err != nil {
		return err
	}
	defer tr.Close()

	ctx := context.Background()
	id, err := resolveID(ctx, tr, args[0])
	if err != nil {
		return err
	}
	n, err := tr.Read(ctx, id, ownerFlag)
	if err != nil {
		return err
	}

	fmt.Printf("Node:     %s\n", n.ID)
	fmt.Printf("Kind:     %s\n", n.Kind)
	fmt.Printf("Path:     %s\n", n.Path)
	if n.Language != "" {
		fmt.Printf("Language: %s\n", n.Language)
	}
	fmt.Printf("Created:  %s\n", n.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Updated:  %s\n", n.UpdatedAt.Format(time.RFC3339))

	switch n.Kind {
	case storage.KindFile:
		content, err := tr.ReadContent(ctx, n.ID, ownerFlag)
		if err != nil {
			return err
		}
		fmt.Println(strings.Repeat("─", 60))
		fmt.Print(content)
		if content != "" && !strings.HasSuffix(content, "\n") {
			fmt.Println()
		}
	case storage.KindProject:
		nodes, err := tr.ListByProject(ctx, ownerFlag, n.ID)
		if err != nil {
			return err
		}
		fmt.Printf("\nNodes: %d\n", len(nodes)-1)
		fmt.Println(strings.Repeat("─", 60))
		for _, c := range nodes[1:] {
			fmt.Printf("  %-8s %s\n", c.Kind, c.Path)
		}
	}

	return nil
}

func runNodesNewProject(cmd *cobra.Command, args []string) error {
	tr, err := openTree()
	if err != nil {
		return err
	}
	defer tr.Close()

	bundle, err := tr.CreateProject(context.Background(), ownerFlag, args[0], projectLang)
	if err != nil {
		return err
	}
	fmt.Printf("Created project %s (%s)\n", bundle.Project.Name, bundle.Project.ID[:8])
	if bundle.EntryFile != nil {
		fmt.Printf("  %s\n", bundle.EntryFile.Path)
	}
	return nil
}

func runNodesDelete(cmd *cobra.Command, args []string) error {
	tr, err := openTree()
	if err != nil {
		return err
	}
	defer tr.Close()

	ctx := context.Background()
	id, err := resolveID(ctx, tr, args[0])
	if err != nil {
		return err
	}
	n, err := tr.Read(ctx, id, ownerFlag)
	if err != nil {
		return err
	}

	if !forceFlag {
		fmt.Printf("Delete %s %q and everything below it? [y/N] ", n.Kind, n.Path)
		var confirm string
		fmt.Scanln(&confirm)
		if strings.ToLower(confirm) != "y" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := tr.Delete(ctx, n.ID, ownerFlag); err != nil {
		return err
	}
	fmt.Printf("Deleted %s %s\n", n.Kind, n.Path)
	return nil
}

func runNodesExport(cmd *cobra.Command, args []string) error {
	tr, err := openTree()
	if err != nil {
		return err
	}
	defer tr.Close()

	ctx := context.Background()
	id, err := resolveID(ctx, tr, args[0])
	if err != nil {
		return err
	}
	output, err := tr.Export(ctx, ownerFlag, id, exportFormat)
	if err != nil {
		return err
	}

	if exportOutput != "" {
		return os.WriteFile(exportOutput, output, 0o644)
	}

	os.Stdout.Write(output)
	return nil
}

func runNodesReconcile(cmd *cobra.Command, args []string) error {
	tr, err := openTree()
	if err != nil {
		return err
	}
	defer tr.Close()

	report, err := tr.Reconcile(context.Background(), ownerFlag)
	if err != nil {
		return err
	}
	fmt.Printf("Checked %d nodes, repaired %d, failed %d\n", report.Checked, len(report.Repaired), len(report.Failed))
	for _, p := range report.Repaired {
		fmt.Printf("  \033[32mrepaired\033[0m %s\n", p)
	}
	for _, f := range report.Failed {
		fmt.Printf("  \033[31mfailed\033[0m   %s\n", f)
	}
	return nil
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
