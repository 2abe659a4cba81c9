package cache

import (
	"slices"
	"strings"
)

// Keyer builds cache keys. Implementations must be deterministic: equal
// inputs always produce equal keys.
type Keyer interface {
	// LayoutKey identifies a computed layout.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string
	// WidgetsKey identifies a widget listing of one board.
	WidgetsKey(boardID string, types []string) string
	// BoardKey identifies the panel state stored for a board.
	BoardKey(boardID string) string
}

// LayoutKeyOpts are the options that change a layout's output.
type LayoutKeyOpts struct {
	Provider        string  `json:"provider"`
	Algorithm       string  `json:"algorithm"`
	NestedAlgorithm string  `json:"nested_algorithm,omitempty"`
	NodeSep         float64 `json:"node_sep,omitempty"`
	RankSep         float64 `json:"rank_sep,omitempty"`
	Direction       string  `json:"direction,omitempty"`
	NodeWidth       float64 `json:"node_width,omitempty"`
	NodeHeight      float64 `json:"node_height,omitempty"`
	Padding         float64 `json:"padding,omitempty"`
}

// DefaultKeyer is the standard key layout:
//
//	layout:<sha256(graph hash, opts)>
//	widgets:<board>:<sha256(sorted types)>
//	board:<board>
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard Keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey implements Keyer.
func (DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", graphHash, opts)
}

// WidgetsKey implements Keyer. The order of types does not matter.
func (DefaultKeyer) WidgetsKey(boardID string, types []string) string {
	sorted := slices.Clone(types)
	for i, t := range sorted {
		sorted[i] = strings.ToLower(strings.TrimSpace(t))
	}
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	return hashKey("widgets:"+boardID, sorted)
}

// BoardKey implements Keyer.
func (DefaultKeyer) BoardKey(boardID string) string {
	return "board:" + boardID
}
