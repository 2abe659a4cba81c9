package board

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Op names a board operation, used by [Memory] fault injection and call
// counting.
type Op string

// Board operations.
const (
	OpGetSelection    Op = "get_selection"
	OpGet             Op = "get"
	OpCreateShape     Op = "create_shape"
	OpUpdateShape     Op = "update_shape"
	OpCreateConnector Op = "create_connector"
	OpRemove          Op = "remove"
	OpGroup           Op = "group"
	OpStartBatch      Op = "start_batch"
	OpEndBatch        Op = "end_batch"
	OpAbortBatch      Op = "abort_batch"
)

// FaultFunc decides whether a call fails. target is the item id for
// updates and removals, the content for shape creation and "start->end"
// for connectors; it is empty for the other operations.
type FaultFunc func(op Op, target string) error

// Memory is an in-memory [Board]. Batches snapshot the board on StartBatch
// and AbortBatch restores the snapshot. It is safe for concurrent use.
type Memory struct {
	mu        sync.Mutex
	id        string
	seq       int
	items     map[string]Item
	order     []string
	selection []string
	saved     *memoryState
	fault     FaultFunc
	calls     map[Op]int
	hub       Hub
}

type memoryState struct {
	seq   int
	items map[string]Item
	order []string
}

// NewMemory creates an empty board with the given id.
func NewMemory(id string) *Memory {
	return &Memory{id: id, items: make(map[string]Item), calls: make(map[Op]int)}
}

// ID returns the board id.
func (m *Memory) ID() string { return m.id }

// Inject installs fn as the fault function; nil removes it.
func (m *Memory) Inject(fn FaultFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = fn
}

// Calls returns how often op was invoked, including failed calls.
func (m *Memory) Calls(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Items returns every item in creation order.
func (m *Memory) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked("")
}

// Item returns the item with the given id.
func (m *Memory) Item(id string) (Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	return cloneItem(it), ok
}

// InBatch reports whether a batch is open.
func (m *Memory) InBatch() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved != nil
}

// Select replaces the selection and notifies subscribers. Unknown ids are
// ignored.
func (m *Memory) Select(ids ...string) {
	m.mu.Lock()
	m.selection = m.selection[:0]
	for _, id := range ids {
		if _, ok := m.items[id]; ok {
			m.selection = append(m.selection, id)
		}
	}
	ev := SelectionEvent{BoardID: m.id, Items: m.selectedLocked()}
	m.mu.Unlock()

	m.hub.Publish(ev)
}

func (m *Memory) GetSelection(context.Context) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpGetSelection, ""); err != nil {
		return nil, err
	}
	return m.selectedLocked(), nil
}

func (m *Memory) Get(_ context.Context, f Filter) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpGet, f.Type); err != nil {
		return nil, err
	}
	return m.listLocked(f.Type), nil
}

func (m *Memory) CreateShape(_ context.Context, spec ShapeSpec) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpCreateShape, spec.Content); err != nil {
		return Item{}, err
	}
	if spec.Width < 0 || spec.Height < 0 {
		return Item{}, fmt.Errorf("%w: negative size", ErrInvalidShape)
	}
	it := Item{
		ID:      m.nextID(),
		Type:    TypeShape,
		Content: spec.Content,
		Shape:   spec.Shape,
		Width:   spec.Width,
		Height:  spec.Height,
		Style:   maps.Clone(spec.Style),
	}
	if it.Shape == "" {
		it.Shape = "rectangle"
	}
	if spec.Position != nil {
		it.X, it.Y = spec.Position.X, spec.Position.Y
	}
	m.add(it)
	return cloneItem(it), nil
}

func (m *Memory) UpdateShape(_ context.Context, id string, spec ShapeSpec) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpUpdateShape, id); err != nil {
		return Item{}, err
	}
	it, ok := m.items[id]
	if !ok || it.Type != TypeShape {
		return Item{}, fmt.Errorf("shape %s: %w", id, ErrNotFound)
	}
	it.Content = spec.Content
	if spec.Shape != "" {
		it.Shape = spec.Shape
	}
	if spec.Position != nil {
		it.X, it.Y = spec.Position.X, spec.Position.Y
	}
	if spec.Width > 0 {
		it.Width = spec.Width
	}
	if spec.Height > 0 {
		it.Height = spec.Height
	}
	if spec.Style != nil {
		it.Style = maps.Clone(spec.Style)
	}
	m.items[id] = it
	return cloneItem(it), nil
}

func (m *Memory) CreateConnector(_ context.Context, spec ConnectorSpec) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpCreateConnector, spec.StartID+"->"+spec.EndID); err != nil {
		return Item{}, err
	}
	for _, end := range []string{spec.StartID, spec.EndID} {
		if _, ok := m.items[end]; !ok {
			return Item{}, fmt.Errorf("connector endpoint %s: %w", end, ErrNotFound)
		}
	}
	it := Item{
		ID:      m.nextID(),
		Type:    TypeConnector,
		Content: spec.Caption,
		Shape:   spec.Shape,
		StartID: spec.StartID,
		EndID:   spec.EndID,
		Style:   maps.Clone(spec.Style),
	}
	m.add(it)
	return cloneItem(it), nil
}

// Remove deletes an item. Removing a shape also removes the connectors
// attached to it, as Miro does.
func (m *Memory) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpRemove, id); err != nil {
		return err
	}
	if _, ok := m.items[id]; !ok {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	m.drop(id)
	for _, other := range slices.Clone(m.order) {
		if it := m.items[other]; it.Type == TypeConnector && (it.StartID == id || it.EndID == id) {
			m.drop(other)
		}
	}
	return nil
}

// RemoveConnector deletes a connector. Other item types are not found.
func (m *Memory) RemoveConnector(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpRemove, id); err != nil {
		return err
	}
	if it, ok := m.items[id]; !ok || it.Type != TypeConnector {
		return fmt.Errorf("connector %s: %w", id, ErrNotFound)
	}
	m.drop(id)
	return nil
}

func (m *Memory) Group(_ context.Context, ids []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpGroup, ""); err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("group: no items")
	}
	for _, id := range ids {
		if _, ok := m.items[id]; !ok {
			return "", fmt.Errorf("group member %s: %w", id, ErrNotFound)
		}
	}
	group := Item{ID: m.nextID(), Type: TypeGroup}
	m.add(group)
	for _, id := range ids {
		it := m.items[id]
		it.Parent = group.ID
		m.items[id] = it
	}
	return group.ID, nil
}

func (m *Memory) StartBatch(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpStartBatch, ""); err != nil {
		return err
	}
	if m.saved != nil {
		return ErrBatchActive
	}
	items := make(map[string]Item, len(m.items))
	for id, it := range m.items {
		items[id] = cloneItem(it)
	}
	m.saved = &memoryState{seq: m.seq, items: items, order: slices.Clone(m.order)}
	return nil
}

func (m *Memory) EndBatch(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpEndBatch, ""); err != nil {
		return err
	}
	if m.saved == nil {
		return ErrNoBatch
	}
	m.saved = nil
	return nil
}

func (m *Memory) AbortBatch(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpAbortBatch, ""); err != nil {
		return err
	}
	if m.saved == nil {
		return ErrNoBatch
	}
	m.seq, m.items, m.order = m.saved.seq, m.saved.items, m.saved.order
	m.saved = nil
	m.selection = slices.DeleteFunc(m.selection, func(id string) bool {
		_, ok := m.items[id]
		return !ok
	})
	return nil
}

func (m *Memory) OnSelectionUpdate(handler func(SelectionEvent)) func() {
	return m.hub.Subscribe(handler)
}

func (m *Memory) enter(op Op, target string) error {
	m.calls[op]++
	if m.fault != nil {
		return m.fault(op, target)
	}
	return nil
}

func (m *Memory) nextID() string {
	m.seq++
	return fmt.Sprintf("item-%d", m.seq)
}

func (m *Memory) add(it Item) {
	m.items[it.ID] = it
	m.order = append(m.order, it.ID)
}

func (m *Memory) drop(id string) {
	delete(m.items, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	m.selection = slices.DeleteFunc(m.selection, func(s string) bool { return s == id })
}

func (m *Memory) listLocked(typ string) []Item {
	out := make([]Item, 0, len(m.order))
	for _, id := range m.order {
		if it := m.items[id]; typ == "" || it.Type == typ {
			out = append(out, cloneItem(it))
		}
	}
	return out
}

func (m *Memory) selectedLocked() []Item {
	out := make([]Item, 0, len(m.selection))
	for _, id := range m.selection {
		out = append(out, cloneItem(m.items[id]))
	}
	return out
}

func cloneItem(it Item) Item {
	it.Style = maps.Clone(it.Style)
	return it
}

var _ Board = (*Memory)(nil)
