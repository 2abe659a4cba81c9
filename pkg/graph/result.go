package graph

// =============================================================================
// LayoutResult - Positions Produced by the Layout Engine
// =============================================================================

// Rect is a node's placement in board units. X and Y are the centre of the
// node, matching how the board positions widgets.
type Rect struct {
	X      float64 `json:"x" bson:"x"`
	Y      float64 `json:"y" bson:"y"`
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// Left returns the x coordinate of the left edge.
func (r Rect) Left() float64 { return r.X - r.Width/2 }

// Top returns the y coordinate of the top edge.
func (r Rect) Top() float64 { return r.Y - r.Height/2 }

// Point is a position in board units.
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// RoutedEdge is an edge with the polyline the layout routed it along.
type RoutedEdge struct {
	From     string  `json:"from" bson:"from"`
	To       string  `json:"to" bson:"to"`
	Label    string  `json:"label,omitempty" bson:"label,omitempty"`
	Points   []Point `json:"points,omitempty" bson:"points,omitempty"`
	LabelPos *Point  `json:"labelPos,omitempty" bson:"label_pos,omitempty"`
}

// LayoutResult holds node placements keyed by id and routed edges in input
// edge order. The origin is the top-left corner of the drawing. A result is
// never modified after the engine returns it.
type LayoutResult struct {
	Width  float64         `json:"width" bson:"width"`
	Height float64         `json:"height" bson:"height"`
	Nodes  map[string]Rect `json:"nodes" bson:"nodes"`
	Edges  []RoutedEdge    `json:"edges" bson:"edges"`
}

// Apply returns a copy of g with positions and sizes taken from the result.
// Nodes missing from the result keep their existing values.
func (l LayoutResult) Apply(g Graph) Graph {
	out := g.Clone()
	for i, n := range out.Nodes {
		r, ok := l.Nodes[n.ID]
		if !ok {
			continue
		}
		out.Nodes[i].X = Float(r.X)
		out.Nodes[i].Y = Float(r.Y)
		out.Nodes[i].Width = Float(r.Width)
		out.Nodes[i].Height = Float(r.Height)
	}
	return out
}

// Translate returns a copy of the result moved by (dx, dy).
func (l LayoutResult) Translate(dx, dy float64) LayoutResult {
	out := LayoutResult{
		Width:  l.Width,
		Height: l.Height,
		Nodes:  make(map[string]Rect, len(l.Nodes)),
		Edges:  make([]RoutedEdge, len(l.Edges)),
	}
	for id, r := range l.Nodes {
		r.X += dx
		r.Y += dy
		out.Nodes[id] = r
	}
	for i, e := range l.Edges {
		pts := make([]Point, len(e.Points))
		for j, p := range e.Points {
			pts[j] = Point{X: p.X + dx, Y: p.Y + dy}
		}
		e.Points = pts
		if e.LabelPos != nil {
			e.LabelPos = &Point{X: e.LabelPos.X + dx, Y: e.LabelPos.Y + dy}
		}
		out.Edges[i] = e
	}
	return out
}
