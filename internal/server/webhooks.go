package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/matzehuels/boardsync/pkg/httputil"
	"github.com/matzehuels/boardsync/pkg/webhook"
)

// handleWebhook answers Miro's verification challenge or queues the event.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := webhook.Parse(body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if p.Challenge != "" {
		writeJSON(w, http.StatusOK, map[string]string{"challenge": p.Challenge})
		return
	}
	if err := s.queue.Enqueue(*p.Event); err != nil {
		if errors.Is(err, webhook.ErrStopped) {
			w.Header().Set("Retry-After", "5")
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: errorDetail{
				Code: "UNAVAILABLE", Message: err.Error(), RequestID: requestIDFrom(r.Context()),
			}})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": p.Event.ID})
}

// HandleEvent implements webhook.Handler. Selection events update the
// board's selection; item events invalidate its cached widget listings.
func (s *Server) HandleEvent(ctx context.Context, ev webhook.Event) error {
	switch ev.Type {
	case webhook.TypeSelection:
		entry, err := s.boards.get(ctx, ev.BoardID)
		if err != nil {
			return err
		}
		return httputil.RetryDo(ctx, s.cfg.Sync.Attempts, s.cfg.Sync.BaseDelay, func(ctx context.Context) error {
			return entry.board.SetSelection(ctx, ev.ItemIDs)
		})
	default:
		return s.invalidateWidgets(ctx, ev.BoardID)
	}
}

// widgetTypeSets are the type filters the panel requests; their listings
// are dropped when an item changes.
var widgetTypeSets = [][]string{
	{},
	{"shape"},
	{"connector"},
	{"shape", "connector"},
}

func (s *Server) invalidateWidgets(ctx context.Context, boardID string) error {
	var errs []error
	for _, types := range widgetTypeSets {
		if err := s.cache.Delete(ctx, s.keyer.WidgetsKey(boardID, types)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
