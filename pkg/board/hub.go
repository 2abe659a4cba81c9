package board

import (
	"slices"
	"sync"
)

// Hub fans selection events out to subscribers. The zero value is ready to
// use and it is safe for concurrent use.
type Hub struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]func(SelectionEvent)
}

// Subscribe registers handler and returns its unsubscribe function, which
// may be called more than once.
func (h *Hub) Subscribe(handler func(SelectionEvent)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.handlers == nil {
		h.handlers = make(map[int]func(SelectionEvent))
	}
	id := h.next
	h.next++
	h.handlers[id] = handler
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.handlers, id)
	}
}

// Publish calls every handler with ev, synchronously and in subscription
// order.
func (h *Hub) Publish(ev SelectionEvent) {
	h.mu.RLock()
	ids := make([]int, 0, len(h.handlers))
	for id := range h.handlers {
		ids = append(ids, id)
	}
	handlers := make([]func(SelectionEvent), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		handlers = append(handlers, h.handlers[id])
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}
