package semantic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/emberlang/ember/internal/interfaces"
)

// ExportDOT renders the usage graph as a Graphviz digraph: one node per
// distinct context class, one edge per recorded call, forward references
// drawn dashed. This is the §4.5/§12 usage-graph supplement, grounded on
// the original implementation's uml_generator rather than ported from it
// line-for-line.
func ExportDOT(g *interfaces.UsageGraph) string {
	var b strings.Builder
	b.WriteString("digraph usage {\n")
	for _, e := range sortedEdges(g) {
		ctx := e.ContextClass
		if ctx == "" {
			ctx = "<global>"
		}
		style := ""
		if e.IsForward {
			style = " [style=dashed]"
		}
		fmt.Fprintf(&b, "  %q -> %q%s;\n", ctx, e.Callee, style)
	}
	b.WriteString("}\n")
	return b.String()
}

// ExportText renders the same graph as a sorted, human-readable call list,
// one "caller -> callee (<location>)" line per edge, or
// "caller -> callee (forward, <location>)" for a forward reference.
func ExportText(g *interfaces.UsageGraph) string {
	var b strings.Builder
	for _, e := range sortedEdges(g) {
		ctx := e.ContextClass
		if ctx == "" {
			ctx = "<global>"
		}
		if e.IsForward {
			fmt.Fprintf(&b, "%s -> %s (forward, %s)\n", ctx, e.Callee, e.Location)
		} else {
			fmt.Fprintf(&b, "%s -> %s (%s)\n", ctx, e.Callee, e.Location)
		}
	}
	return b.String()
}

func sortedEdges(g *interfaces.UsageGraph) []interfaces.UsageEdge {
	edges := make([]interfaces.UsageEdge, len(g.Edges))
	copy(edges, g.Edges)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].ContextClass != edges[j].ContextClass {
			return edges[i].ContextClass < edges[j].ContextClass
		}
		return edges[i].Callee < edges[j].Callee
	})
	return edges
}
