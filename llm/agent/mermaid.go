package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cloudwego/eino/compose"
)

// Edge is one edge of the graph topology. Conditional edges leave a branch.
type Edge struct {
	From        string
	To          string
	Conditional bool
}

// TopologyRecorder captures the edges of a graph when it is compiled.
type TopologyRecorder struct {
	mu    sync.Mutex
	edges []Edge
}

// OnFinish implements compose.GraphCompileCallback.
func (r *TopologyRecorder) OnFinish(_ context.Context, info *compose.GraphInfo) {
	if info == nil {
		return
	}

	var edges []Edge
	for from, tos := range info.Edges {
		for _, to := range tos {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	for from, branches := range info.Branches {
		for i := range branches {
			for to := range branches[i].GetEndNode() {
				edges = append(edges, Edge{From: from, To: to, Conditional: true})
			}
		}
	}
	sortEdges(edges)

	r.mu.Lock()
	r.edges = edges
	r.mu.Unlock()
}

// Edges returns the recorded edges; nil before the graph is compiled.
func (r *TopologyRecorder) Edges() []Edge {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Edge(nil), r.edges...)
}

// sortEdges START 的边在最前，END 的边在最后，其余按名字排序
func sortEdges(edges []Edge) {
	rank := func(e Edge) int {
		switch {
		case e.From == compose.START:
			return 0
		case e.To == compose.END:
			return 2
		default:
			return 1
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if rank(a) != rank(b) {
			return rank(a) < rank(b)
		}
		if a.From != b.From {
			return a.From < b.From
		}
		return a.To < b.To
	})
}

// DrawMermaid renders the topology as a Mermaid flowchart.
func DrawMermaid(edges []Edge) string {
	var sb strings.Builder
	sb.WriteString("---\nconfig:\n  flowchart:\n    curve: linear\n---\ngraph TD;\n")

	seen := make(map[string]bool)
	var nodes []string
	for _, e := range edges {
		for _, n := range []string{e.From, e.To} {
			if !seen[n] {
				seen[n] = true
				nodes = append(nodes, n)
			}
		}
	}

	for _, n := range nodes {
		switch n {
		case compose.START:
			sb.WriteString(fmt.Sprintf("\t%s([<p>%s</p>]):::first\n", mermaidID(n), n))
		case compose.END:
			sb.WriteString(fmt.Sprintf("\t%s([<p>%s</p>]):::last\n", mermaidID(n), n))
		default:
			sb.WriteString(fmt.Sprintf("\t%s(%s)\n", mermaidID(n), n))
		}
	}

	for _, e := range edges {
		arrow := "-->"
		if e.Conditional {
			arrow = "-.->"
		}
		sb.WriteString(fmt.Sprintf("\t%s %s %s;\n", mermaidID(e.From), arrow, mermaidID(e.To)))
	}

	sb.WriteString("\tclassDef default fill:#f2f0ff,line-height:1.2\n")
	sb.WriteString("\tclassDef first fill-opacity:0\n")
	sb.WriteString("\tclassDef last fill:#bfb6fc\n")
	return sb.String()
}

// WriteMermaid writes the diagram of edges to path, creating parent directories.
func WriteMermaid(path string, edges []Edge) error {
	if len(edges) == 0 {
		return errors.New("graph topology is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create diagram dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(DrawMermaid(edges)), 0o644); err != nil {
		return fmt.Errorf("write diagram: %w", err)
	}
	return nil
}

// mermaidID turns eino's start/end markers into identifiers Mermaid accepts.
func mermaidID(node string) string {
	switch node {
	case compose.START:
		return "__start__"
	case compose.END:
		return "__end__"
	default:
		return node
	}
}
