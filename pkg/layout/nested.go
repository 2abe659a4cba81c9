package layout

import (
	"cmp"
	"context"
	"slices"

	"github.com/matzehuels/boardsync/pkg/graph"
)

// layoutNested lays out a graph with compound nodes in two passes. The
// children of every compound are laid out with the nested program,
// deepest compounds first, and each compound is sized to fit its children
// plus padding. The top level is then laid out with the top-level program
// and children are translated into their parent's box.
//
// Edges between siblings are routed in their parent's pass. Any other edge
// is lifted to its endpoints' top-level ancestors and routed in the top
// pass; an edge whose endpoints share a top-level ancestor but not a parent
// gets a straight segment.
func (e *Engine) layoutNested(ctx context.Context, g graph.Graph, opts Options) (graph.LayoutResult, error) {
	parentOf := make(map[string]string, len(g.Nodes))
	children := make(map[string][]graph.Node)
	for _, n := range g.Nodes {
		parentOf[n.ID] = n.Parent
		if n.Parent != "" {
			children[n.Parent] = append(children[n.Parent], n)
		}
	}

	depth := func(id string) int {
		d := 0
		for p := parentOf[id]; p != ""; p = parentOf[p] {
			d++
		}
		return d
	}
	var compounds []string
	for _, n := range g.Nodes {
		if len(children[n.ID]) > 0 {
			compounds = append(compounds, n.ID)
		}
	}
	slices.SortStableFunc(compounds, func(a, b string) int { return cmp.Compare(depth(b), depth(a)) })

	// Pass 1: compound interiors, deepest first.
	sizes := make(map[string][2]float64)
	inner := make(map[string]graph.LayoutResult, len(compounds))
	innerEdge := make(map[int]int) // input edge index -> index within its parent's pass
	for _, c := range compounds {
		sub := graph.Graph{Nodes: sized(children[c], sizes)}
		for i, edge := range g.Edges {
			if parentOf[edge.From] == c && parentOf[edge.To] == c {
				innerEdge[i] = len(sub.Edges)
				sub.Edges = append(sub.Edges, edge)
			}
		}
		r, err := e.layoutFlat(ctx, sub, opts, opts.nestedProgram())
		if err != nil {
			return graph.LayoutResult{}, err
		}
		inner[c] = r
		sizes[c] = [2]float64{r.Width + 2*opts.Padding, r.Height + 2*opts.Padding}
	}

	// Pass 2: top level with lifted edges.
	top := graph.Graph{Nodes: sized(g.Children(""), sizes)}
	lifted := make(map[[2]string]int)
	for _, edge := range g.Edges {
		from, to := g.TopLevel(edge.From), g.TopLevel(edge.To)
		pair := [2]string{from, to}
		if from == to {
			continue
		}
		if _, ok := lifted[pair]; ok {
			continue
		}
		lifted[pair] = len(top.Edges)
		label := ""
		if from == edge.From && to == edge.To {
			label = edge.Label
		}
		top.Edges = append(top.Edges, graph.Edge{From: from, To: to, Label: label})
	}
	topResult, err := e.layoutFlat(ctx, top, opts, opts.Program())
	if err != nil {
		return graph.LayoutResult{}, err
	}

	// Place children, shallowest compounds first so parents are positioned.
	result := graph.LayoutResult{
		Width:  topResult.Width,
		Height: topResult.Height,
		Nodes:  make(map[string]graph.Rect, len(g.Nodes)),
		Edges:  make([]graph.RoutedEdge, len(g.Edges)),
	}
	for id, r := range topResult.Nodes {
		result.Nodes[id] = r
	}
	placed := make(map[string]graph.LayoutResult, len(compounds))
	for _, c := range slices.Backward(compounds) {
		box := result.Nodes[c]
		moved := inner[c].Translate(box.Left()+opts.Padding, box.Top()+opts.Padding)
		for id, r := range moved.Nodes {
			result.Nodes[id] = r
		}
		placed[c] = moved
	}

	for i, edge := range g.Edges {
		p := parentOf[edge.From]
		switch {
		case p != "" && p == parentOf[edge.To]:
			result.Edges[i] = placed[p].Edges[innerEdge[i]]
		default:
			pair := [2]string{g.TopLevel(edge.From), g.TopLevel(edge.To)}
			if j, ok := lifted[pair]; ok {
				re := topResult.Edges[j]
				re.From, re.To, re.Label = edge.From, edge.To, edge.Label
				result.Edges[i] = re
			} else {
				result.Edges[i] = graph.RoutedEdge{
					From:   edge.From,
					To:     edge.To,
					Label:  edge.Label,
					Points: straight(result.Nodes[edge.From], result.Nodes[edge.To]),
				}
			}
		}
	}
	return result, nil
}

// sized returns copies of nodes with computed compound sizes applied.
func sized(nodes []graph.Node, sizes map[string][2]float64) []graph.Node {
	out := make([]graph.Node, len(nodes))
	for i, n := range nodes {
		out[i] = n
		if s, ok := sizes[n.ID]; ok {
			out[i].Width = graph.Float(s[0])
			out[i].Height = graph.Float(s[1])
		}
		out[i].Parent = ""
	}
	return out
}
