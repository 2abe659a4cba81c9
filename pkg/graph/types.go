package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	apperrors "github.com/matzehuels/boardsync/pkg/errors"
)

// Sentinel errors for graph validation. They are returned wrapped in an
// INVALID_GRAPH coded error, so both errors.Is and apperrors.Is work.
var (
	ErrEmptyNodeID    = errors.New("node id is empty")
	ErrDuplicateNode  = errors.New("duplicate node id")
	ErrDanglingEdge   = errors.New("edge endpoint does not resolve")
	ErrUnknownParent  = errors.New("parent does not resolve")
	ErrParentCycle    = errors.New("parent chain forms a cycle")
	ErrInvalidSize    = errors.New("node size must be positive")
	ErrMissingPayload = errors.New("graph has no nodes array")
)

// =============================================================================
// Graph - Node-Link Model
// =============================================================================

// Graph is the canonical node-link format read from JSON graph files and
// produced from workbook rows. Edge endpoints reference node ids.
type Graph struct {
	Nodes []Node `json:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" bson:"edges"`
}

// Node is a graph node. Position fields are populated only after layout.
type Node struct {
	ID     string   `json:"id" bson:"id"`
	Label  string   `json:"label,omitempty" bson:"label,omitempty"`
	Type   string   `json:"type,omitempty" bson:"type,omitempty"`
	X      *float64 `json:"x,omitempty" bson:"x,omitempty"`
	Y      *float64 `json:"y,omitempty" bson:"y,omitempty"`
	Width  *float64 `json:"width,omitempty" bson:"width,omitempty"`
	Height *float64 `json:"height,omitempty" bson:"height,omitempty"`
	Parent string   `json:"parent,omitempty" bson:"parent,omitempty"` // compound node id for nested layouts
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Positioned reports whether both coordinates are set.
func (n Node) Positioned() bool { return n.X != nil && n.Y != nil }

// Edge is a directed edge between two nodes.
type Edge struct {
	From  string `json:"from" bson:"from"`
	To    string `json:"to" bson:"to"`
	Label string `json:"label,omitempty" bson:"label,omitempty"`
}

// Key identifies the edge on a board. Parallel edges share a key.
func (e Edge) Key() string { return e.From + "->" + e.To }

// Float returns a pointer to v, for populating optional node fields.
func Float(v float64) *float64 { return &v }

// =============================================================================
// Queries
// =============================================================================

// Index maps node ids to their position in g.Nodes.
func (g Graph) Index() map[string]int {
	idx := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if _, dup := idx[n.ID]; !dup {
			idx[n.ID] = i
		}
	}
	return idx
}

// Node returns the node with the given id.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// IsNested reports whether any node names a parent.
func (g Graph) IsNested() bool {
	return slices.ContainsFunc(g.Nodes, func(n Node) bool { return n.Parent != "" })
}

// Children returns the direct children of parent in input order.
// An empty parent returns the top-level nodes.
func (g Graph) Children(parent string) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Parent == parent {
			out = append(out, n)
		}
	}
	return out
}

// TopLevel returns the id of the top-level ancestor of id.
func (g Graph) TopLevel(id string) string {
	parents := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		parents[n.ID] = n.Parent
	}
	for range len(g.Nodes) {
		p := parents[id]
		if p == "" {
			break
		}
		id = p
	}
	return id
}

// Clone returns a deep copy of g. Layout code works on clones so the caller's
// graph is never mutated.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: slices.Clone(g.Edges),
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = n
		out.Nodes[i].X = cloneFloat(n.X)
		out.Nodes[i].Y = cloneFloat(n.Y)
		out.Nodes[i].Width = cloneFloat(n.Width)
		out.Nodes[i].Height = cloneFloat(n.Height)
	}
	return out
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks that node ids are non-empty and unique, every edge endpoint
// and parent resolves, parent chains are acyclic and explicit sizes are
// positive. The first violation is returned as an INVALID_GRAPH error.
func (g Graph) Validate() error {
	ids := make(map[string]bool, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.ID == "" {
			return invalid(ErrEmptyNodeID, "node %d has an empty id", i)
		}
		if ids[n.ID] {
			return invalid(ErrDuplicateNode, "node %q appears more than once", n.ID)
		}
		ids[n.ID] = true
		if n.Width != nil && *n.Width <= 0 || n.Height != nil && *n.Height <= 0 {
			return invalid(ErrInvalidSize, "node %q has a non-positive size", n.ID)
		}
	}

	for _, n := range g.Nodes {
		if n.Parent != "" && !ids[n.Parent] {
			return invalid(ErrUnknownParent, "node %q: unknown parent %q", n.ID, n.Parent)
		}
	}
	if id, ok := findParentCycle(g.Nodes); ok {
		return invalid(ErrParentCycle, "node %q is its own ancestor", id)
	}

	for i, e := range g.Edges {
		if !ids[e.From] {
			return invalid(ErrDanglingEdge, "edge %d (%s→%s): unknown source %q", i, e.From, e.To, e.From)
		}
		if !ids[e.To] {
			return invalid(ErrDanglingEdge, "edge %d (%s→%s): unknown target %q", i, e.From, e.To, e.To)
		}
	}
	return nil
}

func invalid(sentinel error, format string, args ...any) error {
	return apperrors.Wrap(apperrors.ErrCodeInvalidGraph, sentinel, format, args...)
}

func findParentCycle(nodes []Node) (string, bool) {
	parents := make(map[string]string, len(nodes))
	for _, n := range nodes {
		parents[n.ID] = n.Parent
	}
	for _, id := range slices.Sorted(maps.Keys(parents)) {
		seen := map[string]bool{id: true}
		for p := parents[id]; p != ""; p = parents[p] {
			if seen[p] {
				return id, true
			}
			seen[p] = true
		}
	}
	return "", false
}

// =============================================================================
// Decoding
// =============================================================================

// UnmarshalGraph parses JSON bytes into a Graph and validates it.
func UnmarshalGraph(data []byte) (Graph, error) {
	var raw struct {
		Nodes *[]Node `json:"nodes"`
		Edges []Edge  `json:"edges"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Graph{}, apperrors.Wrap(apperrors.ErrCodeInvalidGraph, err, "decode graph")
	}
	if raw.Nodes == nil {
		return Graph{}, invalid(ErrMissingPayload, "expected an object with a \"nodes\" array")
	}
	g := Graph{Nodes: *raw.Nodes, Edges: raw.Edges}
	if err := g.Validate(); err != nil {
		return Graph{}, err
	}
	return g, nil
}

// String summarises the graph for log lines.
func (g Graph) String() string {
	return fmt.Sprintf("graph(%d nodes, %d edges)", len(g.Nodes), len(g.Edges))
}
