// Package graph provides the node-link model shared by the loader, the layout
// engine and the sync service.
//
// # Core Types
//
//   - [Graph]: nodes and edges read from a JSON graph or built from rows
//   - [Node], [Edge]: structural types; node positions are optional
//   - [LayoutResult]: node placements and routed edges produced by layout
//
// # Graph Serialization
//
// Graphs use a simple node-link JSON format:
//
//	{
//	  "nodes": [{"id": "n1", "label": "API"}, {"id": "n2", "label": "DB"}],
//	  "edges": [{"from": "n1", "to": "n2", "label": "uses"}]
//	}
//
// Decoding always validates. An edge whose endpoint does not resolve is an
// INVALID_GRAPH error; nothing is silently dropped:
//
//	g, err := graph.ReadGraphFile("org.json")
//	if errors.Is(err, graph.ErrDanglingEdge) {
//	    // report the offending edge
//	}
//
// # Nesting
//
// A node may name a compound parent in its parent field. Parent chains must
// resolve and must not loop. [Graph.TopLevel] resolves the outermost
// ancestor, which the layout engine uses to route edges between children of
// different parents.
//
// # Coordinates
//
// All coordinates are board units (see pkg/units). [Rect] positions are node
// centres, with the origin at the top-left of the drawing.
package graph
