package boardsync

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/matzehuels/boardsync/pkg/cache"
	"github.com/matzehuels/boardsync/pkg/diff"
	"github.com/matzehuels/boardsync/pkg/graph"
)

// ShapeRecord is one applied (or desired) shape: a row or graph node with
// the values that determine its widget.
type ShapeRecord struct {
	Key      string      `json:"key"`
	Label    string      `json:"label"`
	Template string      `json:"template"`
	Record   diff.Record `json:"record,omitempty"`
	Rect     *graph.Rect `json:"rect,omitempty"`

	row int // 1-based input position, for error reports
}

// ConnectorRecord is one applied (or desired) connector.
type ConnectorRecord struct {
	Key   string `json:"key"`
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// State is everything a Service remembers between syncs. It round-trips
// through JSON so callers can persist it, for example in the board cache.
type State struct {
	Shapes     []ShapeRecord     `json:"shapes"`
	Connectors []ConnectorRecord `json:"connectors,omitempty"`
	Widgets    map[string]string `json:"widgets"`         // shape key to widget id
	Links      map[string]string `json:"links,omitempty"` // connector key to widget id

	// NextSlot is the next free grid cell for shapes without a layout
	// position. Cells are never handed out twice.
	NextSlot int `json:"nextSlot,omitempty"`
}

// Empty reports whether nothing has been applied.
func (s State) Empty() bool {
	return len(s.Shapes) == 0 && len(s.Connectors) == 0 && len(s.Widgets) == 0
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := State{
		Shapes:     make([]ShapeRecord, len(s.Shapes)),
		Connectors: slices.Clone(s.Connectors),
		Widgets:    maps.Clone(s.Widgets),
		Links:      maps.Clone(s.Links),
		NextSlot:   s.NextSlot,
	}
	for i, r := range s.Shapes {
		out.Shapes[i] = r.clone()
	}
	if out.Widgets == nil {
		out.Widgets = make(map[string]string)
	}
	if out.Links == nil {
		out.Links = make(map[string]string)
	}
	return out
}

func (r ShapeRecord) clone() ShapeRecord {
	r.Record = maps.Clone(r.Record)
	if r.Rect != nil {
		rect := *r.Rect
		r.Rect = &rect
	}
	return r
}

func shapeKey(r ShapeRecord) (string, bool) { return r.Key, r.Key != "" }

func shapesEqual(a, b ShapeRecord) bool {
	return a.Label == b.Label &&
		a.Template == b.Template &&
		rectsEqual(a.Rect, b.Rect) &&
		diff.RecordsEqual(a.Record, b.Record)
}

func rectsEqual(a, b *graph.Rect) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func connectorKey(c ConnectorRecord) (string, bool) { return c.Key, c.Key != "" }

func connectorsEqual(a, b ConnectorRecord) bool { return a == b }

// ordered rebuilds a snapshot slice from applied, following the desired
// order first and the previous order for anything left over.
func ordered[T any](desired, previous []T, key func(T) (string, bool), applied map[string]T) []T {
	out := make([]T, 0, len(applied))
	seen := make(map[string]bool, len(applied))
	for _, list := range [][]T{desired, previous} {
		for _, r := range list {
			k, _ := key(r)
			if seen[k] {
				continue
			}
			if v, ok := applied[k]; ok {
				out = append(out, v)
				seen[k] = true
			}
		}
	}
	return out
}

// StateKey is the cache key of the persisted state of a board. The CLI and
// the backend share it so either can pick up the other's snapshot.
func StateKey(k cache.Keyer, boardID string) string {
	return "sync:" + k.BoardKey(boardID)
}

// LoadState reads a snapshot saved by [SaveState]. ok is false when nothing
// is stored under key.
func LoadState(ctx context.Context, c cache.Cache, key string) (st State, ok bool, err error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return State{}, false, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, false, fmt.Errorf("decode sync state %s: %w", key, err)
	}
	return st, true, nil
}

// SaveState stores st under key without expiry.
func SaveState(ctx context.Context, c cache.Cache, key string, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, 0)
}
