package boardsync

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/matzehuels/boardsync/pkg/board"
	apperrors "github.com/matzehuels/boardsync/pkg/errors"
	"github.com/matzehuels/boardsync/pkg/graph"
	"github.com/matzehuels/boardsync/pkg/httputil"
	"github.com/matzehuels/boardsync/pkg/layout"
)

// Layouter computes layouts. *layout.Engine implements it.
type Layouter interface {
	Layout(ctx context.Context, g graph.Graph, opts layout.Options) (graph.LayoutResult, error)
}

// ArrangeSelection lays out the selected shapes, using the connectors
// between them as edges, moves them into place and groups them. The
// top-left corner of the selection stays where it was.
//
// Arranging does not touch the sync snapshot. It shares the sync slot, so
// it fails with [ErrSyncInProgress] while a sync runs.
func (s *Service) ArrangeSelection(ctx context.Context, l Layouter, opts layout.Options) (report *Report, err error) {
	if _, err := s.begin(); err != nil {
		return nil, err
	}
	defer s.finish(nil)

	start := time.Now()
	selection, err := httputil.Retry(ctx, s.attempts, s.baseDelay, s.board.GetSelection)
	if err != nil {
		return nil, err
	}
	selection = slices.DeleteFunc(selection, func(it board.Item) bool { return it.Type != board.TypeShape })
	if len(selection) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "the selection contains no shapes")
	}
	connectors, err := httputil.Retry(ctx, s.attempts, s.baseDelay, func(ctx context.Context) ([]board.Item, error) {
		return s.board.Get(ctx, board.Filter{Type: board.TypeConnector})
	})
	if err != nil {
		return nil, err
	}

	g := selectionGraph(selection, connectors)
	result, err := l.Layout(ctx, g, opts)
	if err != nil {
		return nil, err
	}

	left, top := math.Inf(1), math.Inf(1)
	for _, it := range selection {
		left = min(left, it.X-it.Width/2)
		top = min(top, it.Y-it.Height/2)
	}

	report = &Report{}
	x := &execution{s: s, ctx: ctx, report: report}
	if err := httputil.RetryDo(ctx, s.attempts, s.baseDelay, s.board.StartBatch); err != nil {
		return report, fatalError(err)
	}

	moved := make([]string, 0, len(selection))
	for _, it := range selection {
		r := result.Nodes[it.ID]
		spec := board.ShapeSpec{
			Content:  it.Content,
			Position: &board.Position{X: left + r.X, Y: top + r.Y},
		}
		ok, err := x.do(it.ID, 0, OpMove, func(ctx context.Context) error {
			_, err := s.board.UpdateShape(ctx, it.ID, spec)
			return err
		})
		if err != nil {
			return report, x.abort(err)
		}
		if ok {
			moved = append(moved, it.ID)
			report.Updated++
		}
	}

	if len(moved) > 1 {
		_, err := x.do("selection", 0, OpGroup, func(ctx context.Context) error {
			_, err := s.board.Group(ctx, moved)
			return err
		})
		if err != nil {
			return report, x.abort(err)
		}
	}

	if err := httputil.RetryDo(ctx, s.attempts, s.baseDelay, s.board.EndBatch); err != nil {
		return report, x.abort(err)
	}
	report.Duration = time.Since(start)
	s.logger.Info("selection arranged", "shapes", report.Updated, "failed", report.Failed(), "duration", report.Duration)
	return report, nil
}

// selectionGraph turns selected shapes and the connectors between them
// into a graph sized like the widgets.
func selectionGraph(selection, connectors []board.Item) graph.Graph {
	var g graph.Graph
	ids := make(map[string]bool, len(selection))
	for _, it := range selection {
		ids[it.ID] = true
		n := graph.Node{ID: it.ID, Label: it.Content}
		if it.Width > 0 && it.Height > 0 {
			n.Width, n.Height = graph.Float(it.Width), graph.Float(it.Height)
		}
		g.Nodes = append(g.Nodes, n)
	}
	for _, c := range connectors {
		if ids[c.StartID] && ids[c.EndID] && c.StartID != c.EndID {
			g.Edges = append(g.Edges, graph.Edge{From: c.StartID, To: c.EndID, Label: c.Content})
		}
	}
	return g
}
