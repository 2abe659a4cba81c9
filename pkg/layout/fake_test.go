package layout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"
)

var (
	fakeNodeRe = regexp.MustCompile(`(?m)^\s*n(\d+) \[label=.*width=([0-9.]+), height=([0-9.]+)`)
	fakeEdgeRe = regexp.MustCompile(`(?m)^\s*n(\d+) -> n(\d+)( \[label=)?`)
)

// fakeLibrary packs nodes in a row and routes every edge as a straight
// spline, producing Graphviz-shaped JSON.
type fakeLibrary struct {
	mu       sync.Mutex
	programs []string
	closed   bool
	fail     error
}

func (l *fakeLibrary) Layout(ctx context.Context, dot []byte, program string) ([]byte, error) {
	l.mu.Lock()
	l.programs = append(l.programs, program)
	fail := l.fail
	l.mu.Unlock()
	if fail != nil {
		return nil, fail
	}

	type obj struct {
		GVID   int    `json:"_gvid"`
		Name   string `json:"name"`
		Pos    string `json:"pos"`
		Width  string `json:"width"`
		Height string `json:"height"`
	}
	type edge struct {
		GVID int    `json:"_gvid"`
		Tail int    `json:"tail"`
		Head int    `json:"head"`
		Pos  string `json:"pos"`
		LP   string `json:"lp,omitempty"`
	}
	out := struct {
		BB      string `json:"bb"`
		Objects []obj  `json:"objects"`
		Edges   []edge `json:"edges"`
	}{}

	// Nodes are packed left to right with a 20pt gap, vertically centred.
	const gap = 20.0
	xs := map[int]float64{}
	var cursor, maxH float64
	for _, m := range fakeNodeRe.FindAllSubmatch(dot, -1) {
		i, _ := strconv.Atoi(string(m[1]))
		w, _ := strconv.ParseFloat(string(m[2]), 64)
		h, _ := strconv.ParseFloat(string(m[3]), 64)
		xs[i] = cursor + w*72/2
		cursor += w*72 + gap
		maxH = max(maxH, h*72)
		out.Objects = append(out.Objects, obj{
			GVID: i, Name: "n" + string(m[1]),
			Width: string(m[2]), Height: string(m[3]),
		})
	}
	for k := range out.Objects {
		out.Objects[k].Pos = fmt.Sprintf("%g,%g", xs[out.Objects[k].GVID], maxH/2)
	}
	for k, m := range fakeEdgeRe.FindAllSubmatch(dot, -1) {
		a, _ := strconv.Atoi(string(m[1]))
		b, _ := strconv.Atoi(string(m[2]))
		y := maxH / 2
		e := edge{
			GVID: k, Tail: a, Head: b,
			Pos: fmt.Sprintf("e,%g,%g %g,%g %g,%g %g,%g %g,%g", xs[b], y, xs[a], y, xs[a], y, xs[b], y, xs[b], y),
		}
		if len(m[3]) > 0 {
			e.LP = fmt.Sprintf("%g,%g", (xs[a]+xs[b])/2, y)
		}
		out.Edges = append(out.Edges, e)
	}
	maxX := max(cursor-gap, 0)
	out.BB = fmt.Sprintf("0,0,%g,%g", maxX, maxH)
	return json.Marshal(out)
}

func (l *fakeLibrary) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func (l *fakeLibrary) calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.programs...)
}

// fakeProvider counts loads and can fail the first n of them.
type fakeProvider struct {
	lib       *fakeLibrary
	loads     atomic.Int32
	failLoads int32
}

func newFakeProvider() *fakeProvider { return &fakeProvider{lib: &fakeLibrary{}} }

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Load(ctx context.Context) (Library, error) {
	n := p.loads.Add(1)
	if n <= p.failLoads {
		return nil, errors.New("library unavailable")
	}
	return p.lib, nil
}
