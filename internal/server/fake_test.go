package server

import (
	"context"
	"strconv"
	"sync"

	"github.com/matzehuels/boardsync/pkg/board"
	apperrors "github.com/matzehuels/boardsync/pkg/errors"
	"github.com/matzehuels/boardsync/pkg/graph"
	"github.com/matzehuels/boardsync/pkg/layout"
	"github.com/matzehuels/boardsync/pkg/miro"
)

// memBoard adds SetSelection to an in-memory board.
type memBoard struct{ *board.Memory }

func (m memBoard) SetSelection(_ context.Context, ids []string) error {
	m.Select(ids...)
	return nil
}

// fakeBackend serves in-memory boards.
type fakeBackend struct {
	mu          sync.Mutex
	boards      map[string]*board.Memory
	widgetCalls int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{boards: make(map[string]*board.Memory)}
}

func (f *fakeBackend) memory(id string) *board.Memory {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.boards[id]
	if !ok {
		m = board.NewMemory(id)
		f.boards[id] = m
	}
	return m
}

func (f *fakeBackend) Board(id string) Board { return memBoard{f.memory(id)} }

func (f *fakeBackend) Widgets(ctx context.Context, boardID string, types []string) (map[string][]board.Item, error) {
	f.mu.Lock()
	f.widgetCalls++
	f.mu.Unlock()
	items, err := f.memory(boardID).Get(ctx, board.Filter{})
	if err != nil {
		return nil, err
	}
	out := make(map[string][]board.Item)
	for _, t := range types {
		out[t] = []board.Item{}
	}
	for _, it := range items {
		if _, ok := out[it.Type]; ok || len(types) == 0 {
			out[it.Type] = append(out[it.Type], it)
		}
	}
	return out, nil
}

func (f *fakeBackend) TokenInfo(context.Context) (miro.TokenInfo, error) {
	info := miro.TokenInfo{Type: "user", Scopes: []string{"boards:read"}}
	info.User.ID = "u1"
	return info, nil
}

// stubLayout places nodes in a row and echoes Graphviz programs.
type stubLayout struct {
	mu    sync.Mutex
	calls int
	last  layout.Options
}

func (l *stubLayout) Layout(_ context.Context, g graph.Graph, opts layout.Options) (graph.LayoutResult, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return graph.LayoutResult{}, err
	}
	if err := g.Validate(); err != nil {
		return graph.LayoutResult{}, err
	}
	l.mu.Lock()
	l.calls++
	l.last = opts
	l.mu.Unlock()

	res := graph.LayoutResult{Nodes: make(map[string]graph.Rect), Edges: []graph.RoutedEdge{}}
	for i, n := range g.Nodes {
		res.Nodes[n.ID] = graph.Rect{X: 80 + float64(i)*200, Y: 40, Width: 160, Height: 80}
	}
	for _, e := range g.Edges {
		res.Edges = append(res.Edges, graph.RoutedEdge{From: e.From, To: e.To, Label: e.Label})
	}
	res.Width = float64(len(g.Nodes)) * 200
	res.Height = 80
	return res, nil
}

func (l *stubLayout) Run(_ context.Context, dot []byte, program string) ([]byte, error) {
	if !layout.IsProgram(program) {
		return nil, apperrors.New(apperrors.ErrCodeInvalidAlgorithm, "unknown graphviz program %q", program)
	}
	return []byte(`{"name":"G","program":"` + program + `","bytes":` + strconv.Itoa(len(dot)) + `}`), nil
}
