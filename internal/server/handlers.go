package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/boardsync/pkg/boardsync"
	"github.com/matzehuels/boardsync/pkg/cache"
	apperrors "github.com/matzehuels/boardsync/pkg/errors"
	"github.com/matzehuels/boardsync/pkg/graph"
	"github.com/matzehuels/boardsync/pkg/layout"
	"github.com/matzehuels/boardsync/pkg/loader"
	"github.com/matzehuels/boardsync/pkg/miro"
	"github.com/matzehuels/boardsync/pkg/observability"
)

func errNotFound(r *http.Request) error {
	return apperrors.New(apperrors.ErrCodeNotFound, "no route for %s %s", r.Method, r.URL.Path)
}

// =============================================================================
// Health & Limits
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.limits())
}

// =============================================================================
// Widgets
// =============================================================================

// handleWidgets lists widgets grouped by type. Listings are cached briefly;
// ?refresh=true bypasses the cache.
func (s *Server) handleWidgets(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardId")
	if err := apperrors.ValidateBoardID(boardID); err != nil {
		writeError(w, r, err)
		return
	}
	types := miro.ParseTypes(r.URL.Query().Get("types"))
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	key := s.keyer.WidgetsKey(boardID, types)

	if !refresh {
		if data, ok, err := s.cache.Get(r.Context(), key); err == nil && ok {
			observability.Cache().OnCacheHit(r.Context(), "widgets")
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "hit")
			_, _ = w.Write(data)
			return
		}
		observability.Cache().OnCacheMiss(r.Context(), "widgets")
	}

	backend, err := s.connect(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	widgets, err := backend.Widgets(r.Context(), boardID, types)
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := json.Marshal(widgets)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.cache.Set(r.Context(), key, data, cache.TTLWidgets); err != nil {
		s.logger.Warn("cache widgets", "board", boardID, "err", err)
	} else {
		observability.Cache().OnCacheSet(r.Context(), "widgets", len(data))
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "miss")
	_, _ = w.Write(data)
}

// =============================================================================
// Sync
// =============================================================================

// syncRequest is the body of POST /api/boards/{boardId}/sync. Either rows
// (with columns) or a graph is synced. Graphs without a layout are laid out
// with the given options first.
type syncRequest struct {
	Rows    []loader.Row       `json:"rows,omitempty"`
	Columns *boardsync.Columns `json:"columns,omitempty"`

	Graph   *graph.Graph        `json:"graph,omitempty"`
	Layout  *graph.LayoutResult `json:"layout,omitempty"`
	Options *layout.Options     `json:"options,omitempty"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if (req.Graph == nil) == (req.Rows == nil) {
		writeError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "send either rows or a graph"))
		return
	}

	boardID := chi.URLParam(r, "boardId")
	entry, err := s.boards.get(r.Context(), boardID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var report *boardsync.Report
	if req.Graph != nil {
		result, lerr := s.graphLayout(r, *req.Graph, req.Layout, req.Options)
		if lerr != nil {
			writeError(w, r, lerr)
			return
		}
		report, err = entry.service.ApplyGraph(r.Context(), *req.Graph, result)
	} else {
		cols := s.cfg.Columns()
		if req.Columns != nil {
			cols = *req.Columns
		}
		if req.Layout != nil {
			cols.Layout = req.Layout
		}
		report, err = entry.service.UpdateShapesFromExcel(r.Context(), req.Rows, cols)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.saveState(r.Context(), boardID, entry.service.State())

	status := http.StatusOK
	if !report.OK() {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, report)
}

func (s *Server) graphLayout(r *http.Request, g graph.Graph, given *graph.LayoutResult, opts *layout.Options) (graph.LayoutResult, error) {
	if given != nil {
		return *given, nil
	}
	if s.layout == nil {
		return graph.LayoutResult{}, apperrors.New(apperrors.ErrCodeUnsupported, "layout engine not configured")
	}
	o := s.cfg.LayoutOptions()
	if opts != nil {
		o = *opts
	}
	return s.layout.Layout(r.Context(), g, o)
}

func (s *Server) handleResetSync(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardId")
	entry, err := s.boards.get(r.Context(), boardID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := entry.service.Reset(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.cache.Delete(r.Context(), stateKey(s, boardID)); err != nil {
		s.logger.Warn("delete sync state", "board", boardID, "err", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleArrange lays out the shapes selected on the board and groups them.
// The body holds layout options and may be empty.
func (s *Server) handleArrange(w http.ResponseWriter, r *http.Request) {
	var opts layout.Options
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &opts); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if s.layout == nil {
		writeError(w, r, apperrors.New(apperrors.ErrCodeUnsupported, "layout engine not configured"))
		return
	}
	entry, err := s.boards.get(r.Context(), chi.URLParam(r, "boardId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := entry.service.ArrangeSelection(r.Context(), s.layout, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// =============================================================================
// Board Cache
// =============================================================================

// handleCacheGet returns the panel state stored for a board. Stored bytes
// that are not JSON are wrapped as {"value": "..."}.
func (s *Server) handleCacheGet(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardId")
	if err := apperrors.ValidateBoardID(boardID); err != nil {
		writeError(w, r, err)
		return
	}
	data, ok, err := s.cache.Get(r.Context(), s.keyer.BoardKey(boardID))
	if err != nil {
		writeError(w, r, apperrors.Wrap(apperrors.ErrCodeInternal, err, "read board cache"))
		return
	}
	if !ok {
		writeError(w, r, apperrors.New(apperrors.ErrCodeNotFound, "nothing cached for board %s", boardID))
		return
	}
	if !json.Valid(data) {
		writeJSON(w, http.StatusOK, map[string]string{"value": string(data)})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// handleCachePut stores the body as the board's panel state. Writing the
// same body twice leaves the same state.
func (s *Server) handleCachePut(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardId")
	if err := apperrors.ValidateBoardID(boardID); err != nil {
		writeError(w, r, err)
		return
	}
	data, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.cache.Set(r.Context(), s.keyer.BoardKey(boardID), data, cache.TTLBoard); err != nil {
		writeError(w, r, apperrors.Wrap(apperrors.ErrCodeInternal, err, "write board cache"))
		return
	}
	observability.Cache().OnCacheSet(r.Context(), "board", len(data))
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Layout
// =============================================================================

// layoutRequest is the body of POST /api/layout.
type layoutRequest struct {
	Graph   graph.Graph    `json:"graph"`
	Options layout.Options `json:"options"`
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	if s.layout == nil {
		writeError(w, r, apperrors.New(apperrors.ErrCodeUnsupported, "layout engine not configured"))
		return
	}
	var req layoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Options.Algorithm == "" {
		defaults := s.cfg.LayoutOptions()
		req.Options.Algorithm = defaults.Algorithm
		if req.Options.NestedAlgorithm == "" {
			req.Options.NestedAlgorithm = defaults.NestedAlgorithm
		}
	}
	result, err := s.layout.Layout(r.Context(), req.Graph, req.Options)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGraphviz runs a Graphviz program on a DOT body and returns Graphviz
// JSON. layout.Remote providers of other instances call it.
func (s *Server) handleGraphviz(w http.ResponseWriter, r *http.Request) {
	if s.layout == nil {
		writeError(w, r, apperrors.New(apperrors.ErrCodeUnsupported, "layout engine not configured"))
		return
	}
	program := r.URL.Query().Get("program")
	if program == "" {
		program = "dot"
	}
	dot, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(dot) == 0 {
		writeError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "empty DOT body"))
		return
	}
	out, err := s.layout.Run(r.Context(), dot, program)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(out)
}
