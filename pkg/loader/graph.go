package loader

import (
	"io"
	"strings"

	"github.com/matzehuels/boardsync/pkg/diff"
	apperrors "github.com/matzehuels/boardsync/pkg/errors"
	"github.com/matzehuels/boardsync/pkg/graph"
)

// LoadGraph reads a JSON {nodes, edges} document and validates it.
func LoadGraph(r io.Reader) (graph.Graph, error) {
	return graph.ReadGraph(r)
}

// LoadGraphFile reads a JSON graph file and validates it.
func LoadGraphFile(path string) (graph.Graph, error) {
	return graph.ReadGraphFile(path)
}

// RowGraphOptions names the columns GraphFromRows reads. Only IDColumn is
// required.
type RowGraphOptions struct {
	IDColumn     string
	LabelColumn  string
	TypeColumn   string
	ParentColumn string
	// LinksColumn holds comma separated ids of the nodes a row points to.
	LinksColumn string
	// LinkLabel labels every edge built from LinksColumn.
	LinkLabel string
}

// GraphFromRows builds a graph with one node per row. Rows without an id are
// rejected with INVALID_ROW; the resulting graph is validated, so a link to
// an unknown id is an INVALID_GRAPH error.
func GraphFromRows(rows []Row, opts RowGraphOptions) (graph.Graph, error) {
	if opts.IDColumn == "" {
		return graph.Graph{}, apperrors.New(apperrors.ErrCodeInvalidInput, "id column is required")
	}

	g := graph.Graph{Nodes: make([]graph.Node, 0, len(rows))}
	for i, r := range rows {
		id := cellString(r, opts.IDColumn)
		if id == "" {
			return graph.Graph{}, apperrors.New(apperrors.ErrCodeInvalidRow, "row %d: column %q is empty", i+1, opts.IDColumn)
		}
		g.Nodes = append(g.Nodes, graph.Node{
			ID:     id,
			Label:  cellString(r, opts.LabelColumn),
			Type:   cellString(r, opts.TypeColumn),
			Parent: cellString(r, opts.ParentColumn),
		})
		for target := range strings.SplitSeq(cellString(r, opts.LinksColumn), ",") {
			if target = strings.TrimSpace(target); target != "" {
				g.Edges = append(g.Edges, graph.Edge{From: id, To: target, Label: opts.LinkLabel})
			}
		}
	}
	if err := g.Validate(); err != nil {
		return graph.Graph{}, err
	}
	return g, nil
}

func cellString(r Row, column string) string {
	if column == "" {
		return ""
	}
	v, ok := r[column]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(diff.KeyString(v))
}
