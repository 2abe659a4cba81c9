// Package layout computes node positions and edge routes with Graphviz.
//
// An [Engine] is constructed once and shared by its consumers:
//
//	engine := layout.New(layout.Bundled{},
//	    layout.WithWorkers(2),
//	    layout.WithCache(c, cache.NewDefaultKeyer()),
//	)
//	defer engine.Close()
//
//	result, err := engine.Layout(ctx, g, layout.Options{Algorithm: "layered"})
//
// # Library Providers
//
// The Graphviz library is obtained from a [LibraryProvider] the first time a
// layout is requested, and the reference is kept for the Engine's lifetime.
// A failed load is reported as LIBRARY_LOAD and is not cached, so a later
// call tries again.
//
//   - [Bundled]: in-process Graphviz (github.com/goccy/go-graphviz)
//   - [Remote]: an HTTP service that accepts DOT and returns Graphviz JSON,
//     such as another `boardsync serve` instance (POST /api/graphviz)
//
// # Workers
//
// With [WithWorkers] the Graphviz runs happen on background goroutines. Each
// job carries its own copy of the DOT source and receives its result on a
// reply channel. Results are identical to inline execution.
//
// # Algorithms
//
// Top-level algorithms map to Graphviz programs:
//
//	layered   dot
//	force     fdp
//	stress    neato
//	radial    twopi
//	circular  circo
//
// Nested algorithms lay out the children of compound nodes:
//
//	box           osage
//	rectstacking  patchwork
//
// Names outside these allow-lists are rejected with INVALID_ALGORITHM before
// anything is dispatched.
//
// # Coordinates
//
// Results are in board units with the origin at the top-left of the drawing.
// Node positions are centres. Graphviz points are converted at 72 points per
// inch and 96 board units per inch, with the y axis flipped.
package layout
