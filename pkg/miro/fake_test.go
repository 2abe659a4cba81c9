package miro

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakeMiro is a tiny in-memory Miro API.
type fakeMiro struct {
	mu       sync.Mutex
	seq      int
	items    map[string]map[string]any
	order    []string
	requests []string
	bodies   []map[string]any
	fail     func(r *http.Request) int // non-zero status fails the request
}

func newFakeMiro(t *testing.T) (*fakeMiro, *Client) {
	t.Helper()
	f := &fakeMiro{items: make(map[string]map[string]any)}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2/boards/{board}/items", f.list("item"))
	mux.HandleFunc("GET /v2/boards/{board}/connectors", f.list("connector"))
	mux.HandleFunc("GET /v2/boards/{board}/items/{id}", f.get)
	mux.HandleFunc("POST /v2/boards/{board}/shapes", f.create("shape"))
	mux.HandleFunc("POST /v2/boards/{board}/connectors", f.create("connector"))
	mux.HandleFunc("POST /v2/boards/{board}/groups", f.create("group"))
	mux.HandleFunc("PATCH /v2/boards/{board}/shapes/{id}", f.patch)
	mux.HandleFunc("DELETE /v2/boards/{board}/items/{id}", f.remove("item"))
	mux.HandleFunc("DELETE /v2/boards/{board}/connectors/{id}", f.remove("connector"))
	mux.HandleFunc("GET /v1/oauth-token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"type": "user", "scopes": []string{"boards:read", "boards:write"},
			"team": map[string]string{"id": "t1", "name": "Team"},
			"user": map[string]string{"id": "u1", "name": "Ada"},
		})
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		fail := f.fail
		f.mu.Unlock()
		if fail != nil {
			if status := fail(r); status != 0 {
				writeJSON(w, status, map[string]any{"status": status, "code": "testError", "message": "injected"})
				return
			}
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return f, NewClient(nil, WithBaseURL(srv.URL+"/v2"), WithRetry(3, time.Millisecond))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeMiro) calls(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if len(r) >= len(prefix) && r[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (f *fakeMiro) list(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		typ := r.URL.Query().Get("type")
		var data []map[string]any
		for _, id := range f.order {
			it := f.items[id]
			isConn := it["type"] == "connector"
			if (kind == "connector") != isConn {
				continue
			}
			if typ != "" && it["type"] != typ {
				continue
			}
			data = append(data, it)
		}
		// one item per page to exercise the cursor
		cursor := r.URL.Query().Get("cursor")
		start := 0
		if cursor != "" {
			fmt.Sscanf(cursor, "%d", &start)
		}
		resp := map[string]any{"data": []map[string]any{}, "total": len(data)}
		if start < len(data) {
			resp["data"] = data[start : start+1]
			if start+1 < len(data) {
				resp["cursor"] = fmt.Sprint(start + 1)
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (f *fakeMiro) get(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"code": "notFound", "message": "item not found"})
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (f *fakeMiro) create(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.bodies = append(f.bodies, body)
		f.seq++
		id := fmt.Sprint(3458764500000000 + f.seq)
		body["id"] = id
		body["type"] = kind
		if pos, ok := body["position"].(map[string]any); ok {
			delete(pos, "origin")
		}
		f.items[id] = body
		f.order = append(f.order, id)
		writeJSON(w, http.StatusCreated, body)
	}
}

func (f *fakeMiro) patch(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies = append(f.bodies, body)
	it, ok := f.items[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "item not found"})
		return
	}
	for k, v := range body {
		it[k] = v
	}
	writeJSON(w, http.StatusOK, it)
}

// remove deletes through the items or the connectors endpoint. Like Miro,
// each endpoint only knows its own kind.
func (f *fakeMiro) remove(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id := r.PathValue("id")
		it, ok := f.items[id]
		if !ok || (it["type"] == "connector") != (kind == "connector") {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": kind + " not found"})
			return
		}
		f.removeLocked(id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (f *fakeMiro) removeLocked(id string) {
	delete(f.items, id)
	for i, o := range f.order {
		if o == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}
