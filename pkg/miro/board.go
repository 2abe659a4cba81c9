package miro

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/matzehuels/boardsync/pkg/board"
	apperrors "github.com/matzehuels/boardsync/pkg/errors"
)

// Board adapts a Client to [board.Board] for one board id.
//
// The REST API cannot see what a user has selected; the selection is pushed
// in from outside (the panel or a webhook) through [Board.SetSelection].
type Board struct {
	client *Client
	id     string
	hub    board.Hub

	mu         sync.Mutex
	selection  []string
	connectors map[string]bool
	created    []string // items created in the open batch
	inBatch    bool
}

// NewBoard returns a Board writing to boardID through c.
//
// A Board sends every call once, whatever the retry policy of c: the
// caller, usually a boardsync.Service, owns retries for board calls.
func NewBoard(c *Client, boardID string) *Board {
	return &Board{client: c.single(), id: boardID, connectors: make(map[string]bool)}
}

// ID returns the board id.
func (b *Board) ID() string { return b.id }

// SetSelection records the selected item ids and notifies subscribers with
// the current state of those items.
func (b *Board) SetSelection(ctx context.Context, ids []string) error {
	b.mu.Lock()
	b.selection = slices.Clone(ids)
	b.mu.Unlock()

	items, err := b.GetSelection(ctx)
	if err != nil {
		return err
	}
	b.hub.Publish(board.SelectionEvent{BoardID: b.id, Items: items})
	return nil
}

// GetSelection fetches the selected items. Items deleted since they were
// selected are skipped.
func (b *Board) GetSelection(ctx context.Context) ([]board.Item, error) {
	b.mu.Lock()
	ids := slices.Clone(b.selection)
	b.mu.Unlock()

	items := make([]board.Item, 0, len(ids))
	for _, id := range ids {
		it, err := b.client.Item(ctx, b.id, id)
		if apperrors.Is(err, apperrors.ErrCodeNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

func (b *Board) Get(ctx context.Context, f board.Filter) ([]board.Item, error) {
	items, err := b.client.Items(ctx, b.id, f.Type)
	if err != nil {
		return nil, err
	}
	if f.Type == board.TypeConnector {
		b.mu.Lock()
		for _, it := range items {
			b.connectors[it.ID] = true
		}
		b.mu.Unlock()
	}
	return items, nil
}

func (b *Board) CreateShape(ctx context.Context, spec board.ShapeSpec) (board.Item, error) {
	it, err := b.client.CreateShape(ctx, b.id, spec)
	if err != nil {
		return board.Item{}, err
	}
	b.track(it.ID, false)
	return it, nil
}

func (b *Board) UpdateShape(ctx context.Context, id string, spec board.ShapeSpec) (board.Item, error) {
	return b.client.UpdateShape(ctx, b.id, id, spec)
}

func (b *Board) CreateConnector(ctx context.Context, spec board.ConnectorSpec) (board.Item, error) {
	it, err := b.client.CreateConnector(ctx, b.id, spec)
	if err != nil {
		return board.Item{}, err
	}
	b.track(it.ID, true)
	return it, nil
}

// Remove deletes an item. Connectors this Board has seen go to the
// connector endpoint; use RemoveConnector for the others.
func (b *Board) Remove(ctx context.Context, id string) error {
	b.mu.Lock()
	isConnector := b.connectors[id]
	b.mu.Unlock()

	if isConnector {
		return b.RemoveConnector(ctx, id)
	}
	if err := b.client.DeleteItem(ctx, b.id, id); err != nil {
		return err
	}
	b.forget(id)
	return nil
}

// RemoveConnector deletes a connector through the connector endpoint.
func (b *Board) RemoveConnector(ctx context.Context, id string) error {
	if err := b.client.DeleteConnector(ctx, b.id, id); err != nil {
		return err
	}
	b.forget(id)
	return nil
}

func (b *Board) forget(id string) {
	b.mu.Lock()
	delete(b.connectors, id)
	b.created = slices.DeleteFunc(b.created, func(s string) bool { return s == id })
	b.mu.Unlock()
}

func (b *Board) Group(ctx context.Context, ids []string) (string, error) {
	return b.client.CreateGroup(ctx, b.id, ids)
}

func (b *Board) StartBatch(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inBatch {
		return board.ErrBatchActive
	}
	b.inBatch = true
	b.created = nil
	return nil
}

func (b *Board) EndBatch(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inBatch {
		return board.ErrNoBatch
	}
	b.inBatch = false
	b.created = nil
	return nil
}

// AbortBatch deletes the items created since StartBatch, newest first.
// Every deletion is attempted; the errors are joined.
func (b *Board) AbortBatch(ctx context.Context) error {
	b.mu.Lock()
	if !b.inBatch {
		b.mu.Unlock()
		return board.ErrNoBatch
	}
	created := slices.Clone(b.created)
	b.inBatch = false
	b.created = nil
	b.mu.Unlock()

	var errs []error
	for _, id := range slices.Backward(created) {
		if err := b.Remove(ctx, id); err != nil && !apperrors.Is(err, apperrors.ErrCodeNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Board) OnSelectionUpdate(handler func(board.SelectionEvent)) func() {
	return b.hub.Subscribe(handler)
}

func (b *Board) track(id string, connector bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if connector {
		b.connectors[id] = true
	}
	if b.inBatch {
		b.created = append(b.created, id)
	}
}

var _ board.Board = (*Board)(nil)
