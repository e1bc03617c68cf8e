package storage

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

var fenceLanguages = map[string]string{
	".py":   "python",
	".html": "html",
	".htm":  "html",
	".css":  "css",
	".js":   "javascript",
	".json": "json",
	".md":   "markdown",
}

// ExportMarkdown renders a project and its nodes as a markdown document.
// nodes must be ordered root first with file contents loaded.
func ExportMarkdown(project *Node, nodes []Node) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("# %s\n\n", project.Name))
	b.WriteString(fmt.Sprintf("- **Project:** %s\n", project.ID))
	if project.Language != "" {
		b.WriteString(fmt.Sprintf("- **Language:** %s\n", project.Language))
	}
	b.WriteString(fmt.Sprintf("- **Created:** %s\n", project.CreatedAt.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("- **Updated:** %s\n", project.UpdatedAt.Format("2006-01-02 15:04:05")))
	b.WriteString("\n---\n\n")

	b.WriteString("## Layout\n\n```\n")
	for _, n := range nodes {
		depth := strings.Count(n.Path, "/")
		suffix := ""
		if n.Kind.IsContainer() {
			suffix = "/"
		}
		b.WriteString(fmt.Sprintf("%s%s%s\n", strings.Repeat("  ", depth), n.Name, suffix))
	}
	b.WriteString("```\n\n")

	for _, n := range nodes {
		if n.Kind != KindFile {
			continue
		}
		fence := fenceFor(n.Content)
		b.WriteString(fmt.Sprintf("## %s\n\n%s%s\n%s", n.Path, fence, fenceLanguages[strings.ToLower(path.Ext(n.Name))], n.Content))
		if !strings.HasSuffix(n.Content, "\n") {
			b.WriteString("\n")
		}
		b.WriteString(fence + "\n\n")
	}

	return b.String()
}

// fenceFor returns a backtick fence longer than any run inside content.
func fenceFor(content string) string {
	longest, run := 0, 0
	for _, r := range content {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	if longest < 3 {
		return "```"
	}
	return strings.Repeat("`", longest+1)
}

// ExportJSON renders a project and its nodes as formatted JSON.
func ExportJSON(project *Node, nodes []Node) ([]byte, error) {
	export := struct {
		Project *Node  `json:"project"`
		Nodes   []Node `json:"nodes"`
	}{
		Project: project,
		Nodes:   nodes,
	}
	return json.MarshalIndent(export, "", "  ")
}
