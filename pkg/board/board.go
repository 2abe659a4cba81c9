// Package board defines the whiteboard capability the sync service needs,
// an in-memory implementation and a selection event hub.
//
// The capability is split in two: [Query] reads (selection and typed
// listings) and [Board] adds the mutations, batching and selection
// subscription. pkg/miro adapts the Miro REST API to [Board]; [Memory]
// serves tests and dry runs.
package board

import (
	"context"
	"errors"
)

// Item types.
const (
	TypeShape     = "shape"
	TypeConnector = "connector"
	TypeFrame     = "frame"
	TypeText      = "text"
	TypeSticky    = "sticky_note"
	TypeGroup     = "group"
)

// Sentinel errors.
var (
	ErrNotFound     = errors.New("item not found")
	ErrBatchActive  = errors.New("batch already started")
	ErrNoBatch      = errors.New("no batch in progress")
	ErrInvalidShape = errors.New("invalid shape spec")
)

// Item is a widget handle returned by the host. Coordinates are board
// units; X and Y are the centre.
type Item struct {
	ID      string            `json:"id"`
	Type    string            `json:"type"`
	Content string            `json:"content,omitempty"`
	Shape   string            `json:"shape,omitempty"`
	X       float64           `json:"x"`
	Y       float64           `json:"y"`
	Width   float64           `json:"width,omitempty"`
	Height  float64           `json:"height,omitempty"`
	Style   map[string]string `json:"style,omitempty"`
	StartID string            `json:"startId,omitempty"` // connectors
	EndID   string            `json:"endId,omitempty"`   // connectors
	Parent  string            `json:"parentId,omitempty"`
}

// Position is an optional centre position.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ShapeSpec describes a shape to create or the fields to update. A nil
// Position and zero sizes leave the current values unchanged on update.
type ShapeSpec struct {
	Content  string            `json:"content"`
	Shape    string            `json:"shape,omitempty"`
	Position *Position         `json:"position,omitempty"`
	Width    float64           `json:"width,omitempty"`
	Height   float64           `json:"height,omitempty"`
	Style    map[string]string `json:"style,omitempty"`
}

// ConnectorSpec describes a connector between two existing items.
type ConnectorSpec struct {
	StartID string            `json:"startId"`
	EndID   string            `json:"endId"`
	Caption string            `json:"caption,omitempty"`
	Shape   string            `json:"shape,omitempty"` // straight, elbowed or curved
	Style   map[string]string `json:"style,omitempty"`
}

// Filter selects items by type. An empty Type matches everything.
type Filter struct {
	Type string `json:"type,omitempty"`
}

// SelectionEvent reports the current selection of a board.
type SelectionEvent struct {
	BoardID string `json:"boardId"`
	Items   []Item `json:"items"`
}

// Query is the read side of the board capability.
type Query interface {
	GetSelection(ctx context.Context) ([]Item, error)
	Get(ctx context.Context, f Filter) ([]Item, error)
}

// Board is the full capability used by the sync service.
//
// Mutations between StartBatch and EndBatch form one undoable step.
// AbortBatch asks the host to discard the step; what is actually rolled back
// is up to the host.
type Board interface {
	Query

	CreateShape(ctx context.Context, spec ShapeSpec) (Item, error)
	UpdateShape(ctx context.Context, id string, spec ShapeSpec) (Item, error)
	CreateConnector(ctx context.Context, spec ConnectorSpec) (Item, error)
	Remove(ctx context.Context, id string) error
	// RemoveConnector deletes a connector. Hosts that address connectors
	// separately from other items need the distinction.
	RemoveConnector(ctx context.Context, id string) error
	Group(ctx context.Context, ids []string) (string, error)

	StartBatch(ctx context.Context) error
	EndBatch(ctx context.Context) error
	AbortBatch(ctx context.Context) error

	// OnSelectionUpdate registers handler and returns a function that
	// unregisters it.
	OnSelectionUpdate(handler func(SelectionEvent)) (unsubscribe func())
}
