// Package boardsync applies workbook rows and laid out graphs to a live
// whiteboard.
//
// A [Service] owns a snapshot of what it last applied and a mapping from row
// key to widget id. Each sync diffs the incoming records against the
// snapshot (see pkg/diff) and applies the difference through a [board.Board]
// inside a single batch:
//
//	svc := boardsync.NewService(b, boardsync.WithLogger(logger))
//	report, err := svc.UpdateShapesFromExcel(ctx, rows, boardsync.Columns{
//	    IDColumn:       "id",
//	    LabelColumn:    "name",
//	    TemplateColumn: "shape",
//	})
//
// # Failure Handling
//
// Every host call is retried through [httputil.Retry]. A row that still
// fails is recorded as a [RowError] in the [Report] and the sync goes on
// with the next row; only rows that succeeded enter the snapshot, so the
// next sync retries the rest.
//
// An expired session (401), a cancelled context or a failing batch
// primitive stops the sync: the batch is aborted, the snapshot is left
// untouched and the error is returned.
//
// A Service runs one sync at a time. A concurrent call returns
// [ErrSyncInProgress].
package boardsync
