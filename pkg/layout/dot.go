package layout

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/matzehuels/boardsync/pkg/graph"
)

// ToDOT converts g into the DOT source run by program. Nodes are emitted as
// "n<index>" so arbitrary ids never need escaping; sizes are fixed from the
// node's width and height (or the option defaults).
func ToDOT(g graph.Graph, opts Options, program string) []byte {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  graph [rankdir=%s, nodesep=%s, ranksep=%s", opts.Direction, ftoa(inches(opts.NodeSep)), ftoa(inches(opts.RankSep)))
	switch program {
	case "fdp", "neato":
		buf.WriteString(", overlap=false")
	case "osage":
		fmt.Fprintf(&buf, ", pad=%s", ftoa(inches(opts.NodeSep/2)))
	}
	buf.WriteString("];\n")
	buf.WriteString("  node [shape=box, fixedsize=true];\n\n")

	for i, n := range g.Nodes {
		w, h := nodeSize(n, opts)
		fmt.Fprintf(&buf, "  n%d [label=%q, width=%s, height=%s", i, n.DisplayLabel(), ftoa(inches(w)), ftoa(inches(h)))
		if program == "patchwork" {
			fmt.Fprintf(&buf, ", area=%s", ftoa(inches(w)*inches(h)))
		}
		buf.WriteString("];\n")
	}

	if len(g.Edges) > 0 {
		buf.WriteString("\n")
	}
	idx := g.Index()
	for _, e := range g.Edges {
		fmt.Fprintf(&buf, "  n%d -> n%d", idx[e.From], idx[e.To])
		if e.Label != "" {
			fmt.Fprintf(&buf, " [label=%q]", e.Label)
		}
		buf.WriteString(";\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes()
}

func nodeSize(n graph.Node, opts Options) (w, h float64) {
	w, h = opts.NodeWidth, opts.NodeHeight
	if n.Width != nil {
		w = *n.Width
	}
	if n.Height != nil {
		h = *n.Height
	}
	return w, h
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', 4, 64) }
