package miro

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/boardsync/pkg/board"
	apperrors "github.com/matzehuels/boardsync/pkg/errors"
)

func boardPath(boardID string, parts ...string) string {
	p := "/boards/" + url.PathEscape(boardID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// Items lists the items of one type on a board, following pagination.
// An empty itemType lists every item except connectors; "connector"
// lists connectors.
func (c *Client) Items(ctx context.Context, boardID, itemType string) ([]board.Item, error) {
	if err := apperrors.ValidateBoardID(boardID); err != nil {
		return nil, err
	}
	if itemType == board.TypeConnector {
		return c.connectors(ctx, boardID)
	}

	var out []board.Item
	q := url.Values{"limit": {strconv.Itoa(pageLimit)}}
	if itemType != "" {
		q.Set("type", itemType)
	}
	for {
		var p page[itemResponse]
		if err := c.do(ctx, http.MethodGet, boardPath(boardID, "items"), q, nil, &p); err != nil {
			return nil, err
		}
		for _, r := range p.Data {
			out = append(out, r.item())
		}
		if p.Cursor == "" || len(p.Data) == 0 {
			return out, nil
		}
		q.Set("cursor", p.Cursor)
	}
}

func (c *Client) connectors(ctx context.Context, boardID string) ([]board.Item, error) {
	var out []board.Item
	q := url.Values{"limit": {strconv.Itoa(pageLimit)}}
	for {
		var p page[connectorResponse]
		if err := c.do(ctx, http.MethodGet, boardPath(boardID, "connectors"), q, nil, &p); err != nil {
			return nil, err
		}
		for _, r := range p.Data {
			out = append(out, r.item())
		}
		if p.Cursor == "" || len(p.Data) == 0 {
			return out, nil
		}
		q.Set("cursor", p.Cursor)
	}
}

// Widgets lists items grouped by type. types is matched case-insensitively
// and duplicates are ignored; the result has one entry per requested type.
func (c *Client) Widgets(ctx context.Context, boardID string, types []string) (map[string][]board.Item, error) {
	out := make(map[string][]board.Item, len(types))
	for _, t := range normalizeTypes(types) {
		items, err := c.Items(ctx, boardID, t)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []board.Item{}
		}
		out[t] = items
	}
	return out, nil
}

// ParseTypes splits a comma separated type list as accepted by Widgets.
func ParseTypes(s string) []string {
	var out []string
	for t := range strings.SplitSeq(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return normalizeTypes(out)
}

func normalizeTypes(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// Item fetches a single item.
func (c *Client) Item(ctx context.Context, boardID, itemID string) (board.Item, error) {
	var r itemResponse
	if err := c.do(ctx, http.MethodGet, boardPath(boardID, "items", itemID), nil, nil, &r); err != nil {
		return board.Item{}, err
	}
	return r.item(), nil
}

// CreateShape adds a shape to a board.
func (c *Client) CreateShape(ctx context.Context, boardID string, spec board.ShapeSpec) (board.Item, error) {
	var r itemResponse
	if err := c.do(ctx, http.MethodPost, boardPath(boardID, "shapes"), nil, newShapeRequest(spec), &r); err != nil {
		return board.Item{}, err
	}
	return r.item(), nil
}

// UpdateShape patches a shape. Unset position and geometry are left as
// they are.
func (c *Client) UpdateShape(ctx context.Context, boardID, itemID string, spec board.ShapeSpec) (board.Item, error) {
	var r itemResponse
	if err := c.do(ctx, http.MethodPatch, boardPath(boardID, "shapes", itemID), nil, newShapeRequest(spec), &r); err != nil {
		return board.Item{}, err
	}
	return r.item(), nil
}

// CreateConnector links two items.
func (c *Client) CreateConnector(ctx context.Context, boardID string, spec board.ConnectorSpec) (board.Item, error) {
	var r connectorResponse
	if err := c.do(ctx, http.MethodPost, boardPath(boardID, "connectors"), nil, newConnectorRequest(spec), &r); err != nil {
		return board.Item{}, err
	}
	return r.item(), nil
}

// DeleteItem removes an item.
func (c *Client) DeleteItem(ctx context.Context, boardID, itemID string) error {
	return c.do(ctx, http.MethodDelete, boardPath(boardID, "items", itemID), nil, nil, nil)
}

// DeleteConnector removes a connector.
func (c *Client) DeleteConnector(ctx context.Context, boardID, connectorID string) error {
	return c.do(ctx, http.MethodDelete, boardPath(boardID, "connectors", connectorID), nil, nil, nil)
}

// CreateGroup groups items and returns the group id.
func (c *Client) CreateGroup(ctx context.Context, boardID string, itemIDs []string) (string, error) {
	var req groupRequest
	req.Data.Items = itemIDs
	var r ref
	if err := c.do(ctx, http.MethodPost, boardPath(boardID, "groups"), nil, req, &r); err != nil {
		return "", err
	}
	return r.ID, nil
}

// TokenInfo describes the current access token. The endpoint lives on the
// v1 API root.
func (c *Client) TokenInfo(ctx context.Context) (TokenInfo, error) {
	v1 := *c
	v1.baseURL = strings.TrimSuffix(c.baseURL, "/v2")
	var info TokenInfo
	err := v1.do(ctx, http.MethodGet, "/v1/oauth-token", nil, nil, &info)
	return info, err
}
