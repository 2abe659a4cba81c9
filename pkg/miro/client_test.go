package miro

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/matzehuels/boardsync/pkg/board"
	apperrors "github.com/matzehuels/boardsync/pkg/errors"
	"github.com/matzehuels/boardsync/pkg/httputil"
)

func TestCreateShapeRequest(t *testing.T) {
	f, c := newFakeMiro(t)
	it, err := c.CreateShape(context.Background(), "b1", board.ShapeSpec{
		Content:  "Alpha",
		Shape:    "circle",
		Position: &board.Position{X: 10, Y: 20},
		Width:    100,
		Height:   100,
		Style:    map[string]string{"fillColor": "#ffffff"},
	})
	if err != nil {
		t.Fatalf("CreateShape: %v", err)
	}
	if it.ID == "" || it.Type != "shape" || it.Content != "Alpha" || it.Shape != "circle" {
		t.Errorf("item = %+v", it)
	}
	if it.X != 10 || it.Y != 20 || it.Width != 100 || it.Style["fillColor"] != "#ffffff" {
		t.Errorf("item geometry = %+v", it)
	}

	body := f.bodies[0]
	pos := body["position"].(map[string]any)
	if pos["x"] != 10.0 {
		t.Errorf("position = %v", pos)
	}
	if _, ok := body["geometry"]; !ok {
		t.Error("geometry missing from request")
	}
}

func TestUpdateShapeOmitsUnsetFields(t *testing.T) {
	f, c := newFakeMiro(t)
	ctx := context.Background()
	it, _ := c.CreateShape(ctx, "b1", board.ShapeSpec{Content: "A", Position: &board.Position{X: 1, Y: 2}})

	upd, err := c.UpdateShape(ctx, "b1", it.ID, board.ShapeSpec{Content: "B"})
	if err != nil {
		t.Fatalf("UpdateShape: %v", err)
	}
	if upd.Content != "B" || upd.X != 1 {
		t.Errorf("updated = %+v", upd)
	}
	body := f.bodies[1]
	if _, ok := body["position"]; ok {
		t.Error("unset position sent")
	}
	if _, ok := body["geometry"]; ok {
		t.Error("unset geometry sent")
	}
}

func TestItemsPagination(t *testing.T) {
	_, c := newFakeMiro(t)
	ctx := context.Background()
	for _, name := range []string{"A", "B", "C"} {
		c.CreateShape(ctx, "b1", board.ShapeSpec{Content: name})
	}

	items, err := c.Items(ctx, "b1", "shape")
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 3 || items[2].Content != "C" {
		t.Errorf("items = %+v", items)
	}
}

func TestItemsValidatesBoardID(t *testing.T) {
	f, c := newFakeMiro(t)
	_, err := c.Items(context.Background(), "../etc", "shape")
	if !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
	if len(f.requests) != 0 {
		t.Error("request sent for invalid board id")
	}
}

func TestWidgets(t *testing.T) {
	_, c := newFakeMiro(t)
	ctx := context.Background()
	a, _ := c.CreateShape(ctx, "b1", board.ShapeSpec{Content: "A"})
	b, _ := c.CreateShape(ctx, "b1", board.ShapeSpec{Content: "B"})
	c.CreateConnector(ctx, "b1", board.ConnectorSpec{StartID: a.ID, EndID: b.ID, Caption: "uses"})

	got, err := c.Widgets(ctx, "b1", ParseTypes("Shape, connector,shape,,sticky_note"))
	if err != nil {
		t.Fatalf("Widgets: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("types = %v", got)
	}
	if len(got["shape"]) != 2 || len(got["connector"]) != 1 || got["sticky_note"] == nil {
		t.Errorf("widgets = %+v", got)
	}
	conn := got["connector"][0]
	if conn.StartID != a.ID || conn.EndID != b.ID || conn.Content != "uses" {
		t.Errorf("connector = %+v", conn)
	}
}

func TestRetryAndStatusErrors(t *testing.T) {
	t.Run("503 retried", func(t *testing.T) {
		f, c := newFakeMiro(t)
		failures := 2
		f.fail = func(r *http.Request) int {
			if failures > 0 {
				failures--
				return http.StatusServiceUnavailable
			}
			return 0
		}
		if _, err := c.CreateShape(context.Background(), "b1", board.ShapeSpec{Content: "A"}); err != nil {
			t.Fatalf("CreateShape: %v", err)
		}
		if got := f.calls("POST"); got != 3 {
			t.Errorf("POST calls = %d, want 3", got)
		}
	})

	t.Run("401 not retried", func(t *testing.T) {
		f, c := newFakeMiro(t)
		f.fail = func(*http.Request) int { return http.StatusUnauthorized }
		_, err := c.Items(context.Background(), "b1", "shape")
		if !httputil.IsUnauthorized(err) || !apperrors.Is(err, apperrors.ErrCodeUnauthorized) {
			t.Errorf("err = %v", err)
		}
		if !strings.Contains(err.Error(), "testError") {
			t.Errorf("api code missing from %q", err)
		}
		if got := f.calls("GET"); got != 1 {
			t.Errorf("GET calls = %d, want 1", got)
		}
	})

	t.Run("404 coded", func(t *testing.T) {
		_, c := newFakeMiro(t)
		_, err := c.Item(context.Background(), "b1", "404")
		if !apperrors.Is(err, apperrors.ErrCodeNotFound) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestLimiterReleased(t *testing.T) {
	_, c := newFakeMiro(t)
	l := httputil.NewLimiter(100, 5)
	WithLimiter(l)(c)

	c.CreateShape(context.Background(), "b1", board.ShapeSpec{Content: "A"})
	if st := l.Stats(); st.InFlight != 0 || st.QueueLength != 0 {
		t.Errorf("stats = %+v", st)
	}
	if c.Limiter() != l {
		t.Error("Limiter() does not return the configured limiter")
	}
}

func TestTokenInfo(t *testing.T) {
	_, c := newFakeMiro(t)
	info, err := c.TokenInfo(context.Background())
	if err != nil {
		t.Fatalf("TokenInfo: %v", err)
	}
	if info.User.Name != "Ada" || info.Team.ID != "t1" || len(info.Scopes) != 2 {
		t.Errorf("info = %+v", info)
	}
}
