package miro

import (
	"maps"

	"github.com/matzehuels/boardsync/pkg/board"
)

type position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Origin string  `json:"origin,omitempty"`
}

type geometry struct {
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

type ref struct {
	ID string `json:"id"`
}

type itemResponse struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Content string `json:"content"`
		Shape   string `json:"shape"`
		Title   string `json:"title"`
	} `json:"data"`
	Style    map[string]string `json:"style"`
	Position *position         `json:"position"`
	Geometry *geometry         `json:"geometry"`
	Parent   *ref              `json:"parent"`
}

func (r itemResponse) item() board.Item {
	it := board.Item{
		ID:      r.ID,
		Type:    r.Type,
		Content: r.Data.Content,
		Shape:   r.Data.Shape,
		Style:   r.Style,
	}
	if it.Content == "" {
		it.Content = r.Data.Title
	}
	if r.Position != nil {
		it.X, it.Y = r.Position.X, r.Position.Y
	}
	if r.Geometry != nil {
		it.Width, it.Height = r.Geometry.Width, r.Geometry.Height
	}
	if r.Parent != nil {
		it.Parent = r.Parent.ID
	}
	return it
}

type caption struct {
	Content string `json:"content"`
}

type connectorResponse struct {
	ID        string            `json:"id"`
	Shape     string            `json:"shape"`
	StartItem *ref              `json:"startItem"`
	EndItem   *ref              `json:"endItem"`
	Captions  []caption         `json:"captions"`
	Style     map[string]string `json:"style"`
}

func (r connectorResponse) item() board.Item {
	it := board.Item{ID: r.ID, Type: board.TypeConnector, Shape: r.Shape, Style: r.Style}
	if r.StartItem != nil {
		it.StartID = r.StartItem.ID
	}
	if r.EndItem != nil {
		it.EndID = r.EndItem.ID
	}
	if len(r.Captions) > 0 {
		it.Content = r.Captions[0].Content
	}
	return it
}

type page[T any] struct {
	Data   []T    `json:"data"`
	Cursor string `json:"cursor"`
	Total  int    `json:"total"`
}

type shapeRequest struct {
	Data struct {
		Content string `json:"content"`
		Shape   string `json:"shape,omitempty"`
	} `json:"data"`
	Style    map[string]string `json:"style,omitempty"`
	Position *position         `json:"position,omitempty"`
	Geometry *geometry         `json:"geometry,omitempty"`
}

func newShapeRequest(spec board.ShapeSpec) shapeRequest {
	var req shapeRequest
	req.Data.Content = spec.Content
	req.Data.Shape = spec.Shape
	req.Style = maps.Clone(spec.Style)
	if spec.Position != nil {
		req.Position = &position{X: spec.Position.X, Y: spec.Position.Y, Origin: "center"}
	}
	if spec.Width > 0 || spec.Height > 0 {
		req.Geometry = &geometry{Width: spec.Width, Height: spec.Height}
	}
	return req
}

type connectorRequest struct {
	StartItem ref               `json:"startItem"`
	EndItem   ref               `json:"endItem"`
	Shape     string            `json:"shape,omitempty"`
	Captions  []caption         `json:"captions,omitempty"`
	Style     map[string]string `json:"style,omitempty"`
}

func newConnectorRequest(spec board.ConnectorSpec) connectorRequest {
	req := connectorRequest{
		StartItem: ref{ID: spec.StartID},
		EndItem:   ref{ID: spec.EndID},
		Shape:     spec.Shape,
		Style:     maps.Clone(spec.Style),
	}
	if spec.Caption != "" {
		req.Captions = []caption{{Content: spec.Caption}}
	}
	return req
}

type groupRequest struct {
	Data struct {
		Items []string `json:"items"`
	} `json:"data"`
}

// TokenInfo describes the user and team behind an access token.
type TokenInfo struct {
	Type   string   `json:"type"`
	Scopes []string `json:"scopes"`
	Team   struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"team"`
	User struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"user"`
}
