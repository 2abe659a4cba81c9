package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/boardsync/pkg/graph"
	"github.com/matzehuels/boardsync/pkg/units"
)

// gvOutput is the subset of Graphviz's -Tjson output the engine reads.
type gvOutput struct {
	BB      string     `json:"bb"`
	Objects []gvObject `json:"objects"`
	Edges   []gvEdge   `json:"edges"`
}

type gvObject struct {
	GVID   int     `json:"_gvid"`
	Name   string  `json:"name"`
	Pos    string  `json:"pos"`
	Width  gvFloat `json:"width"`
	Height gvFloat `json:"height"`
	BB     string  `json:"bb"` // set on subgraphs only
}

type gvEdge struct {
	GVID int    `json:"_gvid"`
	Tail int    `json:"tail"`
	Head int    `json:"head"`
	Pos  string `json:"pos"`
	LP   string `json:"lp"`
}

// gvFloat accepts numbers encoded either as JSON numbers or strings.
type gvFloat float64

func (f *gvFloat) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 {
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*f = gvFloat(v)
	return nil
}

// parseOutput converts Graphviz JSON for g (as emitted by ToDOT) into a
// LayoutResult. Every node must have a position; edges without a routed
// spline get a straight segment between the node centres.
func parseOutput(data []byte, g graph.Graph) (graph.LayoutResult, error) {
	var out gvOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return graph.LayoutResult{}, fmt.Errorf("decode graphviz output: %w", err)
	}
	bb, err := parseFloats(out.BB, 4)
	if err != nil {
		return graph.LayoutResult{}, fmt.Errorf("bounding box: %w", err)
	}
	left, top := bb[0], bb[3]
	toBoard := func(x, y float64) graph.Point {
		return graph.Point{X: units.PointsToBoardUnits(x - left), Y: units.PointsToBoardUnits(top - y)}
	}

	result := graph.LayoutResult{
		Width:  units.PointsToBoardUnits(bb[2] - bb[0]),
		Height: units.PointsToBoardUnits(bb[3] - bb[1]),
		Nodes:  make(map[string]graph.Rect, len(g.Nodes)),
		Edges:  make([]graph.RoutedEdge, len(g.Edges)),
	}

	names := make(map[int]string, len(g.Nodes))
	for _, obj := range out.Objects {
		if obj.BB != "" || !strings.HasPrefix(obj.Name, "n") {
			continue
		}
		i, err := strconv.Atoi(obj.Name[1:])
		if err != nil || i < 0 || i >= len(g.Nodes) {
			continue
		}
		pos, err := parseFloats(obj.Pos, 2)
		if err != nil {
			return graph.LayoutResult{}, fmt.Errorf("node %q: position: %w", g.Nodes[i].ID, err)
		}
		p := toBoard(pos[0], pos[1])
		result.Nodes[g.Nodes[i].ID] = graph.Rect{
			X:      p.X,
			Y:      p.Y,
			Width:  units.InchesToBoardUnits(float64(obj.Width)),
			Height: units.InchesToBoardUnits(float64(obj.Height)),
		}
		names[obj.GVID] = g.Nodes[i].ID
	}
	for _, n := range g.Nodes {
		if _, ok := result.Nodes[n.ID]; !ok {
			return graph.LayoutResult{}, fmt.Errorf("node %q missing from graphviz output", n.ID)
		}
	}

	routed := make(map[int]gvEdge, len(out.Edges))
	for _, e := range out.Edges {
		routed[e.GVID] = e
	}
	for i, e := range g.Edges {
		re := graph.RoutedEdge{From: e.From, To: e.To, Label: e.Label}
		if gv, ok := routed[i]; ok && names[gv.Tail] == e.From && names[gv.Head] == e.To && gv.Pos != "" {
			pts, err := parseSpline(gv.Pos)
			if err != nil {
				return graph.LayoutResult{}, fmt.Errorf("edge %s: %w", e.Key(), err)
			}
			for _, p := range pts {
				re.Points = append(re.Points, toBoard(p[0], p[1]))
			}
			if lp, err := parseFloats(gv.LP, 2); err == nil {
				p := toBoard(lp[0], lp[1])
				re.LabelPos = &p
			}
		} else {
			re.Points = straight(result.Nodes[e.From], result.Nodes[e.To])
		}
		result.Edges[i] = re
	}
	return result, nil
}

func straight(from, to graph.Rect) []graph.Point {
	return []graph.Point{{X: from.X, Y: from.Y}, {X: to.X, Y: to.Y}}
}

// parseSpline reads a Graphviz edge pos attribute:
//
//	[s,x,y ][e,x,y ]x1,y1 x2,y2 ... xn,yn
//
// The start point (if any) is prepended and the arrow tip (if any) appended.
func parseSpline(pos string) ([][2]float64, error) {
	var (
		start, end *[2]float64
		pts        [][2]float64
	)
	// Multi-spline edges separate splines with ';'; the first one is enough.
	if i := strings.IndexByte(pos, ';'); i >= 0 {
		pos = pos[:i]
	}
	for _, tok := range strings.Fields(pos) {
		switch {
		case strings.HasPrefix(tok, "s,"), strings.HasPrefix(tok, "e,"):
			v, err := parseFloats(tok[2:], 2)
			if err != nil {
				return nil, err
			}
			p := [2]float64{v[0], v[1]}
			if tok[0] == 's' {
				start = &p
			} else {
				end = &p
			}
		default:
			v, err := parseFloats(tok, 2)
			if err != nil {
				return nil, err
			}
			pts = append(pts, [2]float64{v[0], v[1]})
		}
	}
	if start != nil {
		pts = append([][2]float64{*start}, pts...)
	}
	if end != nil {
		pts = append(pts, *end)
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("empty spline %q", pos)
	}
	return pts, nil
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma separated numbers, got %q", n, s)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}
