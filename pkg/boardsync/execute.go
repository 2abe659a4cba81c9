package boardsync

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/matzehuels/boardsync/pkg/board"
	"github.com/matzehuels/boardsync/pkg/diff"
	apperrors "github.com/matzehuels/boardsync/pkg/errors"
	"github.com/matzehuels/boardsync/pkg/httputil"
	"github.com/matzehuels/boardsync/pkg/observability"
)

// Grid cell for new shapes without a layout position, in board units.
const (
	gridColumns    = 8
	gridCellWidth  = 240.0
	gridCellHeight = 160.0
)

// plan is the desired board content for one sync.
type plan struct {
	shapes []ShapeRecord

	// connectors are only diffed when syncConnectors is set; otherwise the
	// applied connectors are left alone.
	connectors     []ConnectorRecord
	syncConnectors bool

	keep    map[string]bool // keys of invalid rows; never deleted
	invalid []RowError
}

// execution carries the mutable state of one sync.
type execution struct {
	s      *Service
	ctx    context.Context
	report *Report

	widgets    map[string]string
	links      map[string]string
	shapes     map[string]ShapeRecord
	connectors map[string]ConnectorRecord
	slot       int // next free grid cell
}

func (s *Service) sync(ctx context.Context, p plan) (report *Report, err error) {
	prev, err := s.begin()
	if err != nil {
		return nil, err
	}
	var next *State
	defer func() { s.finish(next) }()

	start := time.Now()
	report = &Report{Errors: slices.Clone(p.invalid)}
	for _, re := range p.invalid {
		observability.Sync().OnRowError(ctx, re.Key, re.Err)
	}

	shapes := diff.Compute(prev.Shapes, p.shapes, shapeKey, shapesEqual)
	shapes.Deletes = slices.DeleteFunc(shapes.Deletes, func(r ShapeRecord) bool { return p.keep[r.Key] })
	var connectors diff.Changes[ConnectorRecord]
	if p.syncConnectors {
		connectors = diff.Compute(prev.Connectors, p.connectors, connectorKey, connectorsEqual)
	}
	report.Unchanged = distinct(p.shapes) - len(shapes.Creates) - len(shapes.Updates)

	observability.Sync().OnSyncStart(ctx,
		len(shapes.Creates)+len(connectors.Creates),
		len(shapes.Updates)+len(connectors.Updates),
		len(shapes.Deletes)+len(connectors.Deletes))
	defer func() {
		report.Duration = time.Since(start)
		observability.Sync().OnSyncComplete(ctx, report.Applied(), report.Failed(), report.Duration, err)
		s.logger.Info("sync finished",
			"created", report.Created,
			"updated", report.Updated,
			"deleted", report.Deleted,
			"unchanged", report.Unchanged,
			"failed", report.Failed(),
			"duration", report.Duration)
	}()

	x := &execution{
		s:          s,
		ctx:        ctx,
		report:     report,
		widgets:    prev.Widgets,
		links:      prev.Links,
		shapes:     make(map[string]ShapeRecord, len(prev.Shapes)),
		connectors: make(map[string]ConnectorRecord, len(prev.Connectors)),
		slot:       max(prev.NextSlot, len(prev.Widgets)),
	}
	for _, r := range prev.Shapes {
		x.shapes[r.Key] = r
	}
	for _, c := range prev.Connectors {
		x.connectors[c.Key] = c
	}

	if shapes.Empty() && connectors.Empty() {
		report.Widgets = maps.Clone(x.widgets)
		return report, nil
	}
	if err := x.apply(shapes, connectors); err != nil {
		return report, err
	}

	next = &State{
		Shapes:     ordered(p.shapes, prev.Shapes, shapeKey, x.shapes),
		Connectors: ordered(p.connectors, prev.Connectors, connectorKey, x.connectors),
		Widgets:    x.widgets,
		Links:      x.links,
		NextSlot:   x.slot,
	}
	report.Widgets = maps.Clone(x.widgets)
	return report, nil
}

// apply runs every change inside one batch. Shapes are created and updated
// first so connectors can reference them; removed shapes go last.
func (x *execution) apply(shapes diff.Changes[ShapeRecord], connectors diff.Changes[ConnectorRecord]) error {
	if err := httputil.RetryDo(x.ctx, x.s.attempts, x.s.baseDelay, x.s.board.StartBatch); err != nil {
		return fatalError(fmt.Errorf("start batch: %w", err))
	}

	steps := make([]func() error, 0, shapes.Len()+2*connectors.Len())
	for _, r := range shapes.Creates {
		steps = append(steps, func() error { return x.createShape(r) })
	}
	for _, r := range shapes.Updates {
		steps = append(steps, func() error { return x.updateShape(r) })
	}
	for _, c := range slices.Concat(connectors.Deletes, connectors.Updates) {
		steps = append(steps, func() error { return x.removeConnector(c) })
	}
	for _, c := range slices.Concat(connectors.Creates, connectors.Updates) {
		steps = append(steps, func() error { return x.createConnector(c) })
	}
	for _, r := range shapes.Deletes {
		steps = append(steps, func() error { return x.deleteShape(r) })
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return x.abort(err)
		}
	}

	if err := httputil.RetryDo(x.ctx, x.s.attempts, x.s.baseDelay, x.s.board.EndBatch); err != nil {
		return x.abort(fmt.Errorf("end batch: %w", err))
	}
	return nil
}

// abort asks the host to discard the batch. The abort call is not bound to
// the caller's cancellation.
func (x *execution) abort(cause error) error {
	if err := x.s.board.AbortBatch(context.WithoutCancel(x.ctx)); err != nil {
		x.s.logger.Error("abort batch failed", "err", err)
	}
	x.s.logger.Warn("sync aborted", "err", cause)
	return fatalError(cause)
}

// do runs fn with retries. A failure that does not stop the sync is
// recorded against key and reported as ok == false with a nil error.
func (x *execution) do(key string, row int, op string, fn func(context.Context) error) (ok bool, err error) {
	if err := x.ctx.Err(); err != nil {
		return false, err
	}
	err = httputil.RetryDo(x.ctx, x.s.attempts, x.s.baseDelay, fn)
	if err == nil {
		return true, nil
	}
	if isFatal(x.ctx, err) {
		return false, err
	}
	x.fail(newRowError(key, row, op, err))
	return false, nil
}

func (x *execution) fail(re RowError) {
	x.report.Errors = append(x.report.Errors, re)
	observability.Sync().OnRowError(x.ctx, re.Key, re.Err)
	x.s.logger.Warn("row failed", "key", re.Key, "op", re.Op, "err", re.Err)
}

func (x *execution) createShape(r ShapeRecord) error {
	if _, ok := x.widgets[r.Key]; ok {
		return x.updateShape(r)
	}
	spec := x.spec(r, true)
	var item board.Item
	ok, err := x.do(r.Key, r.row, OpCreate, func(ctx context.Context) (err error) {
		item, err = x.s.board.CreateShape(ctx, spec)
		return err
	})
	if ok {
		x.widgets[r.Key] = item.ID
		x.shapes[r.Key] = r
		x.report.Created++
	}
	return err
}

// updateShape changes the mapped widget. A widget that was removed on the
// board is created again and remapped.
func (x *execution) updateShape(r ShapeRecord) error {
	id, ok := x.widgets[r.Key]
	if !ok {
		delete(x.shapes, r.Key)
		return x.createShape(r)
	}
	spec := x.spec(r, false)
	var (
		item     board.Item
		recreate *board.ShapeSpec
	)
	ok, err := x.do(r.Key, r.row, OpUpdate, func(ctx context.Context) (err error) {
		item, err = x.s.board.UpdateShape(ctx, id, spec)
		if isNotFound(err) {
			x.s.logger.Debug("widget gone, recreating", "key", r.Key, "widget", id)
			if recreate == nil {
				placed := x.spec(r, true)
				recreate = &placed
			}
			item, err = x.s.board.CreateShape(ctx, *recreate)
		}
		return err
	})
	if ok {
		x.widgets[r.Key] = item.ID
		x.shapes[r.Key] = r
		x.report.Updated++
	}
	return err
}

func (x *execution) deleteShape(r ShapeRecord) error {
	id, ok := x.widgets[r.Key]
	if !ok {
		delete(x.shapes, r.Key)
		return nil
	}
	ok, err := x.do(r.Key, r.row, OpDelete, func(ctx context.Context) error {
		if err := x.s.board.Remove(ctx, id); err != nil && !isNotFound(err) {
			return err
		}
		return nil
	})
	if !ok {
		return err
	}
	delete(x.widgets, r.Key)
	delete(x.shapes, r.Key)
	x.report.Deleted++

	// the host removes attached connectors along with the shape
	for key, c := range x.connectors {
		if c.From == r.Key || c.To == r.Key {
			delete(x.connectors, key)
			delete(x.links, key)
		}
	}
	return nil
}

func (x *execution) removeConnector(c ConnectorRecord) error {
	id, ok := x.links[c.Key]
	if !ok {
		delete(x.connectors, c.Key)
		return nil
	}
	ok, err := x.do(c.Key, 0, OpDelete, func(ctx context.Context) error {
		if err := x.s.board.RemoveConnector(ctx, id); err != nil && !isNotFound(err) {
			return err
		}
		return nil
	})
	if ok {
		delete(x.links, c.Key)
		delete(x.connectors, c.Key)
		x.report.ConnectorsDeleted++
	}
	return err
}

func (x *execution) createConnector(c ConnectorRecord) error {
	start, okStart := x.widgets[c.From]
	end, okEnd := x.widgets[c.To]
	if !okStart || !okEnd {
		err := apperrors.New(apperrors.ErrCodeNotFound, "connector %s: endpoint is not on the board", c.Key)
		x.fail(newRowError(c.Key, 0, OpConnect, err))
		return nil
	}
	spec := board.ConnectorSpec{StartID: start, EndID: end, Caption: c.Label, Shape: "curved"}
	var item board.Item
	ok, err := x.do(c.Key, 0, OpConnect, func(ctx context.Context) (err error) {
		item, err = x.s.board.CreateConnector(ctx, spec)
		return err
	})
	if ok {
		x.links[c.Key] = item.ID
		x.connectors[c.Key] = c
		x.report.ConnectorsCreated++
	}
	return err
}

// spec builds the shape for r. place assigns a grid position when r has no
// layout position, for shapes that are being created.
func (x *execution) spec(r ShapeRecord, place bool) board.ShapeSpec {
	tmpl, err := x.s.templates.Lookup(r.Template)
	if err != nil {
		tmpl, _ = DefaultTemplates().Lookup(DefaultTemplate)
	}
	spec := board.ShapeSpec{
		Content: r.Label,
		Shape:   tmpl.Shape,
		Width:   tmpl.Width,
		Height:  tmpl.Height,
		Style:   maps.Clone(tmpl.Style),
	}
	switch {
	case r.Rect != nil:
		spec.Position = &board.Position{X: r.Rect.X, Y: r.Rect.Y}
		if r.Rect.Width > 0 && r.Rect.Height > 0 {
			spec.Width, spec.Height = r.Rect.Width, r.Rect.Height
		}
	case place:
		slot := x.slot
		x.slot++
		spec.Position = &board.Position{
			X: float64(slot%gridColumns)*gridCellWidth + gridCellWidth/2,
			Y: float64(slot/gridColumns)*gridCellHeight + gridCellHeight/2,
		}
	}
	return spec
}

func distinct(records []ShapeRecord) int {
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		seen[r.Key] = true
	}
	return len(seen)
}

// isFatal reports whether err must stop the whole sync: cancellation, an
// expired session or a broken batch.
func isFatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		httputil.IsUnauthorized(err) ||
		apperrors.Is(err, apperrors.ErrCodeUnauthorized) ||
		errors.Is(err, board.ErrBatchActive) ||
		errors.Is(err, board.ErrNoBatch)
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, board.ErrNotFound) || apperrors.Is(err, apperrors.ErrCodeNotFound) {
		return true
	}
	status, ok := httputil.Status(err)
	return ok && status == http.StatusNotFound
}

// fatalError gives an unauthorized failure the UNAUTHORIZED code so callers
// can start re-authentication.
func fatalError(err error) error {
	if httputil.IsUnauthorized(err) && apperrors.GetCode(err) == "" {
		return apperrors.Wrap(apperrors.ErrCodeUnauthorized, err, "board session expired")
	}
	return fmt.Errorf("sync aborted: %w", err)
}
