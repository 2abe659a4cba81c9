package layout

import (
	"strings"
	"testing"

	"github.com/matzehuels/boardsync/pkg/graph"
)

func TestToDOT(t *testing.T) {
	g := graph.Graph{
		Nodes: []graph.Node{
			{ID: "api gateway", Label: `Say "hi"`},
			{ID: "db", Width: graph.Float(96), Height: graph.Float(48)},
		},
		Edges: []graph.Edge{{From: "api gateway", To: "db", Label: "uses"}},
	}
	dot := string(ToDOT(g, Options{}.WithDefaults(), "dot"))

	for _, want := range []string{
		"digraph G {",
		"rankdir=TB",
		`n0 [label="Say \"hi\"", width=1.6667, height=0.8333];`,
		`n1 [label="db", width=1.0000, height=0.5000];`,
		`n0 -> n1 [label="uses"];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "area=") {
		t.Error("area should only be set for patchwork")
	}
	if !strings.Contains(string(ToDOT(g, Options{}.WithDefaults(), "patchwork")), "area=") {
		t.Error("patchwork nodes need an area")
	}
}

func TestParseOutput(t *testing.T) {
	g := graph.Graph{
		Nodes: []graph.Node{{ID: "a"}, {ID: "b"}},
		Edges: []graph.Edge{{From: "a", To: "b", Label: "uses"}, {From: "b", To: "a"}},
	}
	out := `{
		"bb": "0,0,144,72",
		"objects": [
			{"_gvid": 0, "name": "n0", "pos": "36,54", "width": "1", "height": "0.5"},
			{"_gvid": 1, "name": "n1", "pos": "108,18", "width": 1, "height": 0.5}
		],
		"edges": [
			{"_gvid": 0, "tail": 0, "head": 1, "pos": "e,108,36 36,36 50,36 90,36 100,36", "lp": "72,45"}
		]
	}`

	r, err := parseOutput([]byte(out), g)
	if err != nil {
		t.Fatal(err)
	}
	if r.Width != 192 || r.Height != 96 {
		t.Errorf("size = %vx%v, want 192x96", r.Width, r.Height)
	}
	if a := r.Nodes["a"]; a != (graph.Rect{X: 48, Y: 24, Width: 96, Height: 48}) {
		t.Errorf("a = %+v", a)
	}
	if b := r.Nodes["b"]; b.X != 144 || b.Y != 72 {
		t.Errorf("b = %+v (y axis should be flipped)", b)
	}

	if len(r.Edges) != 2 {
		t.Fatalf("edges = %d, want 2", len(r.Edges))
	}
	e0 := r.Edges[0]
	if len(e0.Points) != 5 || e0.Points[4] != (graph.Point{X: 144, Y: 48}) {
		t.Errorf("edge 0 points = %+v (arrow tip should be last)", e0.Points)
	}
	if e0.LabelPos == nil || *e0.LabelPos != (graph.Point{X: 96, Y: 36}) {
		t.Errorf("edge 0 label pos = %+v", e0.LabelPos)
	}
	if e1 := r.Edges[1]; len(e1.Points) != 2 || e1.Points[0] != (graph.Point{X: 144, Y: 72}) {
		t.Errorf("unrouted edge should be a straight segment: %+v", e1.Points)
	}
}

func TestParseOutputErrors(t *testing.T) {
	g := graph.Graph{Nodes: []graph.Node{{ID: "a"}}}
	tests := []struct {
		name string
		out  string
	}{
		{"not json", `<svg/>`},
		{"bad bb", `{"bb":"0,0","objects":[]}`},
		{"missing node", `{"bb":"0,0,10,10","objects":[]}`},
		{"bad pos", `{"bb":"0,0,10,10","objects":[{"_gvid":0,"name":"n0","pos":"x,y"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseOutput([]byte(tt.out), g); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseSpline(t *testing.T) {
	pts, err := parseSpline("s,1,2 e,9,9 3,4 5,6 7,8 8,8")
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != 6 || pts[0] != [2]float64{1, 2} || pts[5] != [2]float64{9, 9} {
		t.Errorf("points = %v", pts)
	}
	if _, err := parseSpline(""); err == nil {
		t.Error("empty spline should fail")
	}
}
