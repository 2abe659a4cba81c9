// Package webhook queues Miro board events and dispatches them on background
// workers.
//
// Miro posts board subscription events to the backend, and the panel posts
// selection changes the REST API cannot observe. Both arrive at
// POST /webhooks/miro, are parsed with [Parse] and enqueued; a [Queue] drains
// them on a fixed number of workers into a [Handler].
//
// The queue is bounded and in memory. A full queue rejects new events with
// [ErrQueueFull] instead of blocking the HTTP handler, and events still queued
// when the process stops are lost.
package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/matzehuels/boardsync/pkg/errors"
)

// Event types.
const (
	TypeSelection = "selection"
	TypeCreate    = "create"
	TypeUpdate    = "update"
	TypeDelete    = "delete"
)

// Event is one queued board event.
type Event struct {
	ID       string    `json:"id"`
	BoardID  string    `json:"board_id"`
	Type     string    `json:"type"`
	ItemIDs  []string  `json:"item_ids,omitempty"`
	ItemType string    `json:"item_type,omitempty"`
	Received time.Time `json:"received"`
}

// Payload is a parsed webhook body. Exactly one of Challenge or Event is set.
type Payload struct {
	Challenge string
	Event     *Event
}

// wire mirrors both the Miro subscription format and the panel's selection
// messages.
type wire struct {
	Challenge string `json:"challenge"`
	Event     *struct {
		BoardID string `json:"boardId"`
		Type    string `json:"type"`
		Item    *struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"item"`
		Items []string `json:"items"`
	} `json:"event"`
}

// Parse decodes a webhook body. Verification requests only carry a
// challenge, which the caller echoes back.
func Parse(body []byte) (Payload, error) {
	var w wire
	if err := json.Unmarshal(body, &w); err != nil {
		return Payload{}, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid webhook body")
	}
	if w.Challenge != "" {
		return Payload{Challenge: w.Challenge}, nil
	}
	if w.Event == nil {
		return Payload{}, apperrors.New(apperrors.ErrCodeInvalidInput, "webhook body has no event")
	}
	if err := apperrors.ValidateBoardID(w.Event.BoardID); err != nil {
		return Payload{}, err
	}

	ev := &Event{
		ID:       uuid.NewString(),
		BoardID:  w.Event.BoardID,
		Type:     w.Event.Type,
		ItemIDs:  w.Event.Items,
		Received: time.Now().UTC(),
	}
	switch ev.Type {
	case TypeSelection:
		if ev.ItemIDs == nil {
			ev.ItemIDs = []string{}
		}
	case TypeCreate, TypeUpdate, TypeDelete:
		if w.Event.Item == nil || w.Event.Item.ID == "" {
			return Payload{}, apperrors.New(apperrors.ErrCodeInvalidInput, "%s event without item", ev.Type)
		}
		ev.ItemIDs = []string{w.Event.Item.ID}
		ev.ItemType = w.Event.Item.Type
	default:
		return Payload{}, apperrors.New(apperrors.ErrCodeInvalidInput, "unknown event type %q", ev.Type)
	}
	return Payload{Event: ev}, nil
}

// ErrQueueFull is returned by Enqueue when the queue is at capacity.
var ErrQueueFull = apperrors.New(apperrors.ErrCodeRateLimited, "webhook queue is full")

// ErrStopped is returned by Enqueue after the queue stopped running.
var ErrStopped = errors.New("webhook queue stopped")

// Error wraps a handler failure with the event it failed on.
type Error struct {
	Event Event
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("webhook %s (%s on %s): %v", e.Event.ID, e.Event.Type, e.Event.BoardID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
