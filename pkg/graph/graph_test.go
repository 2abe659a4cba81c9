package graph

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/matzehuels/boardsync/pkg/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		g       Graph
		wantErr error
	}{
		{
			name: "Empty",
			g:    Graph{},
		},
		{
			name: "Simple",
			g: Graph{
				Nodes: []Node{{ID: "n1"}, {ID: "n2"}},
				Edges: []Edge{{From: "n1", To: "n2", Label: "uses"}},
			},
		},
		{
			name: "Nested",
			g: Graph{
				Nodes: []Node{{ID: "team"}, {ID: "a", Parent: "team"}, {ID: "b", Parent: "team"}},
				Edges: []Edge{{From: "a", To: "b"}},
			},
		},
		{
			name:    "EmptyID",
			g:       Graph{Nodes: []Node{{ID: ""}}},
			wantErr: ErrEmptyNodeID,
		},
		{
			name:    "DuplicateID",
			g:       Graph{Nodes: []Node{{ID: "a"}, {ID: "a"}}},
			wantErr: ErrDuplicateNode,
		},
		{
			name: "DanglingTarget",
			g: Graph{
				Nodes: []Node{{ID: "n1"}},
				Edges: []Edge{{From: "n1", To: "ghost"}},
			},
			wantErr: ErrDanglingEdge,
		},
		{
			name: "DanglingSource",
			g: Graph{
				Nodes: []Node{{ID: "n1"}},
				Edges: []Edge{{From: "ghost", To: "n1"}},
			},
			wantErr: ErrDanglingEdge,
		},
		{
			name:    "UnknownParent",
			g:       Graph{Nodes: []Node{{ID: "a", Parent: "team"}}},
			wantErr: ErrUnknownParent,
		},
		{
			name:    "ParentCycle",
			g:       Graph{Nodes: []Node{{ID: "a", Parent: "b"}, {ID: "b", Parent: "a"}}},
			wantErr: ErrParentCycle,
		},
		{
			name:    "ZeroWidth",
			g:       Graph{Nodes: []Node{{ID: "a", Width: Float(0)}}},
			wantErr: ErrInvalidSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.g.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
			if !apperrors.Is(err, apperrors.ErrCodeInvalidGraph) {
				t.Errorf("Validate() code = %q, want INVALID_GRAPH", apperrors.GetCode(err))
			}
		})
	}
}

func TestReadGraph(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantErr   bool
		wantNodes int
		wantEdges int
	}{
		{
			name:      "Valid",
			input:     `{"nodes":[{"id":"n1","label":"API"},{"id":"n2","label":"DB"}],"edges":[{"from":"n1","to":"n2","label":"uses"}]}`,
			wantNodes: 2,
			wantEdges: 1,
		},
		{
			name:      "NoEdges",
			input:     `{"nodes":[{"id":"a"}]}`,
			wantNodes: 1,
		},
		{
			name:      "Positions",
			input:     `{"nodes":[{"id":"a","x":10,"y":20,"width":100,"height":50}]}`,
			wantNodes: 1,
		},
		{name: "InvalidJSON", input: `{not json`, wantErr: true},
		{name: "MissingNodes", input: `{"edges":[]}`, wantErr: true},
		{name: "Dangling", input: `{"nodes":[{"id":"a"}],"edges":[{"from":"a","to":"b"}]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ReadGraph(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !apperrors.Is(err, apperrors.ErrCodeInvalidGraph) {
					t.Errorf("code = %q, want INVALID_GRAPH", apperrors.GetCode(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadGraph: %v", err)
			}
			if len(g.Nodes) != tt.wantNodes {
				t.Errorf("nodes = %d, want %d", len(g.Nodes), tt.wantNodes)
			}
			if len(g.Edges) != tt.wantEdges {
				t.Errorf("edges = %d, want %d", len(g.Edges), tt.wantEdges)
			}
		})
	}
}

func TestReadGraphPositions(t *testing.T) {
	g, err := ReadGraph(strings.NewReader(`{"nodes":[{"id":"a","x":10,"y":20},{"id":"b"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if !g.Nodes[0].Positioned() || *g.Nodes[0].X != 10 || *g.Nodes[0].Y != 20 {
		t.Errorf("node a = %+v, want positioned at (10,20)", g.Nodes[0])
	}
	if g.Nodes[1].Positioned() {
		t.Error("node b should not be positioned")
	}
}

func TestGraphFileRoundTrip(t *testing.T) {
	g := Graph{
		Nodes: []Node{{ID: "n1", Label: "API", Type: "service"}, {ID: "n2", Label: "DB"}},
		Edges: []Edge{{From: "n1", To: "n2", Label: "uses"}},
	}
	path := filepath.Join(t.TempDir(), "graph.json")
	if err := WriteGraphFile(g, path); err != nil {
		t.Fatalf("WriteGraphFile: %v", err)
	}

	got, err := ReadGraphFile(path)
	if err != nil {
		t.Fatalf("ReadGraphFile: %v", err)
	}
	if got.Nodes[0].Type != "service" || got.Edges[0].Label != "uses" {
		t.Errorf("round trip lost fields: %+v", got)
	}
}

func TestReadGraphFileNotFound(t *testing.T) {
	_, err := ReadGraphFile("/nonexistent/graph.json")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestWriteGraphEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteGraph(Graph{}, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"nodes": []`) {
		t.Errorf("empty graph should encode empty arrays, got %s", buf.String())
	}
}

func TestTopLevelAndChildren(t *testing.T) {
	g := Graph{Nodes: []Node{
		{ID: "org"},
		{ID: "team", Parent: "org"},
		{ID: "alice", Parent: "team"},
		{ID: "bob"},
	}}

	if got := g.TopLevel("alice"); got != "org" {
		t.Errorf("TopLevel(alice) = %q, want org", got)
	}
	if got := g.TopLevel("bob"); got != "bob" {
		t.Errorf("TopLevel(bob) = %q, want bob", got)
	}
	if got := g.Children(""); len(got) != 2 {
		t.Errorf("top-level children = %d, want 2", len(got))
	}
	if !g.IsNested() {
		t.Error("IsNested() = false")
	}
}

func TestCloneIsDeep(t *testing.T) {
	g := Graph{Nodes: []Node{{ID: "a", X: Float(1)}}, Edges: []Edge{{From: "a", To: "a"}}}
	c := g.Clone()
	*c.Nodes[0].X = 99
	c.Edges[0].Label = "changed"

	if *g.Nodes[0].X != 1 {
		t.Error("Clone shares node positions")
	}
	if g.Edges[0].Label != "" {
		t.Error("Clone shares edges")
	}
}

func TestLayoutResultApplyAndTranslate(t *testing.T) {
	g := Graph{Nodes: []Node{{ID: "a"}, {ID: "b"}}}
	l := LayoutResult{
		Nodes: map[string]Rect{"a": {X: 10, Y: 20, Width: 4, Height: 2}},
		Edges: []RoutedEdge{{From: "a", To: "b", Points: []Point{{X: 1, Y: 1}}, LabelPos: &Point{X: 2, Y: 2}}},
	}

	applied := l.Apply(g)
	if !applied.Nodes[0].Positioned() || *applied.Nodes[0].Width != 4 {
		t.Errorf("Apply did not position a: %+v", applied.Nodes[0])
	}
	if applied.Nodes[1].Positioned() || g.Nodes[0].Positioned() {
		t.Error("Apply positioned the wrong node or mutated the input")
	}

	moved := l.Translate(5, -5)
	if r := moved.Nodes["a"]; r.X != 15 || r.Y != 15 {
		t.Errorf("translated a = %+v", r)
	}
	if p := moved.Edges[0].Points[0]; p.X != 6 || p.Y != -4 {
		t.Errorf("translated point = %+v", p)
	}
	if l.Nodes["a"].X != 10 || l.Edges[0].Points[0].X != 1 || l.Edges[0].LabelPos.X != 2 {
		t.Error("Translate mutated the original result")
	}
	if r := (Rect{X: 10, Y: 10, Width: 4, Height: 2}); r.Left() != 8 || r.Top() != 9 {
		t.Errorf("Left/Top = %v/%v", r.Left(), r.Top())
	}
}

func TestLayoutFileRoundTrip(t *testing.T) {
	l := LayoutResult{
		Width:  200,
		Height: 100,
		Nodes:  map[string]Rect{"n1": {X: 50, Y: 50, Width: 100, Height: 50}},
		Edges:  []RoutedEdge{{From: "n1", To: "n2", Label: "uses"}},
	}
	path := filepath.Join(t.TempDir(), "layout.json")
	if err := WriteLayoutFile(l, path); err != nil {
		t.Fatal(err)
	}
	got, err := ReadLayoutFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Nodes["n1"] != l.Nodes["n1"] || got.Edges[0].Label != "uses" {
		t.Errorf("round trip = %+v", got)
	}
}
