package boardsync

import (
	"cmp"
	"context"
	"slices"

	"github.com/matzehuels/boardsync/pkg/diff"
	"github.com/matzehuels/boardsync/pkg/graph"
)

// ApplyGraph makes the board match g: nodes become shapes keyed by node id,
// edges become connectors keyed "from->to". Positions come from result,
// falling back to positions stored on the nodes.
//
// A node type that names a template selects it; any other type uses
// [DefaultTemplate]. Compound nodes are created before their children so
// they end up underneath.
func (s *Service) ApplyGraph(ctx context.Context, g graph.Graph, result graph.LayoutResult) (*Report, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return s.sync(ctx, s.planGraph(g, result))
}

func (s *Service) planGraph(g graph.Graph, result graph.LayoutResult) plan {
	p := plan{syncConnectors: true, keep: map[string]bool{}}

	depth := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		d := 0
		for parent := n.Parent; parent != ""; d++ {
			next, _ := g.Node(parent)
			parent = next.Parent
		}
		depth[n.ID] = d
	}

	for i, n := range g.Nodes {
		tmpl := DefaultTemplate
		if _, err := s.templates.Lookup(n.Type); err == nil && n.Type != "" {
			tmpl = templateName(n.Type)
		}
		rec := ShapeRecord{
			Key:      n.ID,
			Label:    n.DisplayLabel(),
			Template: tmpl,
			Record:   diff.Record{"id": n.ID, "label": n.Label, "type": n.Type, "parent": n.Parent},
			row:      i + 1,
		}
		if r, ok := result.Nodes[n.ID]; ok {
			rec.Rect = &r
		} else if n.Positioned() {
			rec.Rect = &graph.Rect{X: *n.X, Y: *n.Y}
			if n.Width != nil && n.Height != nil {
				rec.Rect.Width, rec.Rect.Height = *n.Width, *n.Height
			}
		}
		p.shapes = append(p.shapes, rec)
	}
	slices.SortStableFunc(p.shapes, func(a, b ShapeRecord) int {
		return cmp.Compare(depth[a.Key], depth[b.Key])
	})

	seen := make(map[string]bool, len(g.Edges))
	for _, e := range g.Edges {
		key := e.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		p.connectors = append(p.connectors, ConnectorRecord{Key: key, From: e.From, To: e.To, Label: e.Label})
	}
	return p
}
