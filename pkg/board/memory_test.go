package board

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryCreateUpdateRemove(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("b1")

	a, err := m.CreateShape(ctx, ShapeSpec{Content: "A", Position: &Position{X: 10, Y: 20}, Width: 100, Height: 50})
	if err != nil {
		t.Fatalf("CreateShape: %v", err)
	}
	if a.Type != TypeShape || a.Shape != "rectangle" || a.X != 10 || a.Y != 20 {
		t.Errorf("created = %+v", a)
	}
	b, _ := m.CreateShape(ctx, ShapeSpec{Content: "B", Shape: "circle"})
	c, err := m.CreateConnector(ctx, ConnectorSpec{StartID: a.ID, EndID: b.ID, Caption: "uses"})
	if err != nil {
		t.Fatalf("CreateConnector: %v", err)
	}

	upd, err := m.UpdateShape(ctx, a.ID, ShapeSpec{Content: "A2"})
	if err != nil {
		t.Fatalf("UpdateShape: %v", err)
	}
	if upd.Content != "A2" || upd.X != 10 || upd.Width != 100 {
		t.Errorf("update without position/size changed them: %+v", upd)
	}

	if err := m.Remove(ctx, a.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := m.Item(c.ID); ok {
		t.Error("connector attached to removed shape still present")
	}
	if got := len(m.Items()); got != 1 {
		t.Errorf("items = %d, want 1", got)
	}
	if err := m.Remove(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove err = %v, want ErrNotFound", err)
	}
	if _, err := m.UpdateShape(ctx, "missing", ShapeSpec{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateShape(missing) err = %v", err)
	}
}

func TestMemoryConnectorNeedsEndpoints(t *testing.T) {
	m := NewMemory("b1")
	_, err := m.CreateConnector(context.Background(), ConnectorSpec{StartID: "x", EndID: "y"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryRemoveConnector(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("b1")
	a, _ := m.CreateShape(ctx, ShapeSpec{Content: "A"})
	b, _ := m.CreateShape(ctx, ShapeSpec{Content: "B"})
	c, _ := m.CreateConnector(ctx, ConnectorSpec{StartID: a.ID, EndID: b.ID})

	if err := m.RemoveConnector(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("RemoveConnector(shape) err = %v, want ErrNotFound", err)
	}
	if err := m.RemoveConnector(ctx, c.ID); err != nil {
		t.Fatalf("RemoveConnector: %v", err)
	}
	if _, ok := m.Item(c.ID); ok {
		t.Error("connector still present")
	}
	if got := len(m.Items()); got != 2 {
		t.Errorf("items = %d, want both shapes", got)
	}
	if got := m.Calls(OpRemove); got != 2 {
		t.Errorf("remove calls = %d, want 2", got)
	}
}

func TestMemoryGetFilter(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("b1")
	a, _ := m.CreateShape(ctx, ShapeSpec{Content: "A"})
	b, _ := m.CreateShape(ctx, ShapeSpec{Content: "B"})
	m.CreateConnector(ctx, ConnectorSpec{StartID: a.ID, EndID: b.ID})

	shapes, _ := m.Get(ctx, Filter{Type: TypeShape})
	conns, _ := m.Get(ctx, Filter{Type: TypeConnector})
	all, _ := m.Get(ctx, Filter{})
	if len(shapes) != 2 || len(conns) != 1 || len(all) != 3 {
		t.Errorf("shapes=%d connectors=%d all=%d", len(shapes), len(conns), len(all))
	}
}

func TestMemoryBatchAbortRestores(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("b1")
	keep, _ := m.CreateShape(ctx, ShapeSpec{Content: "keep"})

	if err := m.StartBatch(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.StartBatch(ctx); !errors.Is(err, ErrBatchActive) {
		t.Errorf("nested StartBatch err = %v", err)
	}
	m.CreateShape(ctx, ShapeSpec{Content: "temp"})
	m.UpdateShape(ctx, keep.ID, ShapeSpec{Content: "changed"})
	if err := m.AbortBatch(ctx); err != nil {
		t.Fatal(err)
	}

	items := m.Items()
	if len(items) != 1 || items[0].Content != "keep" {
		t.Errorf("after abort items = %+v", items)
	}
	if m.InBatch() {
		t.Error("batch still open after abort")
	}
	if err := m.EndBatch(ctx); !errors.Is(err, ErrNoBatch) {
		t.Errorf("EndBatch without batch err = %v", err)
	}

	// ids are not reused after an abort
	next, _ := m.CreateShape(ctx, ShapeSpec{Content: "next"})
	if next.ID != "item-2" {
		t.Errorf("next id = %s, want item-2", next.ID)
	}
}

func TestMemoryInject(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("b1")
	boom := errors.New("boom")
	m.Inject(func(op Op, target string) error {
		if op == OpCreateShape && target == "bad" {
			return boom
		}
		return nil
	})

	if _, err := m.CreateShape(ctx, ShapeSpec{Content: "bad"}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if _, err := m.CreateShape(ctx, ShapeSpec{Content: "good"}); err != nil {
		t.Errorf("good create failed: %v", err)
	}
	if got := m.Calls(OpCreateShape); got != 2 {
		t.Errorf("Calls(create) = %d, want 2", got)
	}
}

func TestMemorySelection(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("b1")
	a, _ := m.CreateShape(ctx, ShapeSpec{Content: "A"})
	b, _ := m.CreateShape(ctx, ShapeSpec{Content: "B"})

	var events []SelectionEvent
	unsubscribe := m.OnSelectionUpdate(func(ev SelectionEvent) { events = append(events, ev) })

	m.Select(a.ID, "unknown", b.ID)
	sel, _ := m.GetSelection(ctx)
	if len(sel) != 2 || sel[0].ID != a.ID || sel[1].ID != b.ID {
		t.Errorf("selection = %+v", sel)
	}
	if len(events) != 1 || events[0].BoardID != "b1" || len(events[0].Items) != 2 {
		t.Errorf("events = %+v", events)
	}

	unsubscribe()
	m.Select(a.ID)
	if len(events) != 1 {
		t.Errorf("handler called after unsubscribe")
	}

	m.Remove(ctx, a.ID)
	if sel, _ := m.GetSelection(ctx); len(sel) != 0 {
		t.Errorf("removed item still selected: %+v", sel)
	}
}

func TestMemoryGroup(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("b1")
	a, _ := m.CreateShape(ctx, ShapeSpec{Content: "A"})
	b, _ := m.CreateShape(ctx, ShapeSpec{Content: "B"})

	gid, err := m.Group(ctx, []string{a.ID, b.ID})
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	for _, id := range []string{a.ID, b.ID} {
		if it, _ := m.Item(id); it.Parent != gid {
			t.Errorf("%s parent = %q, want %q", id, it.Parent, gid)
		}
	}
	if _, err := m.Group(ctx, []string{"missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Group(missing) err = %v", err)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("b1")
	style := map[string]string{"fillColor": "#fff"}
	it, _ := m.CreateShape(ctx, ShapeSpec{Content: "A", Style: style})
	style["fillColor"] = "#000"
	it.Style["fillColor"] = "#111"

	got, _ := m.Item(it.ID)
	if got.Style["fillColor"] != "#fff" {
		t.Errorf("stored style mutated: %v", got.Style)
	}
}
