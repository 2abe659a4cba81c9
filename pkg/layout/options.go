package layout

import (
	"maps"
	"slices"
	"strings"

	apperrors "github.com/matzehuels/boardsync/pkg/errors"
	"github.com/matzehuels/boardsync/pkg/units"
)

// Algorithm names accepted in [Options].
const (
	AlgorithmLayered  = "layered"
	AlgorithmForce    = "force"
	AlgorithmStress   = "stress"
	AlgorithmRadial   = "radial"
	AlgorithmCircular = "circular"

	NestedBox          = "box"
	NestedRectStacking = "rectstacking"
)

// Defaults in board units.
const (
	DefaultNodeWidth  = 160.0
	DefaultNodeHeight = 80.0
	DefaultNodeSep    = 48.0
	DefaultRankSep    = 72.0
	DefaultPadding    = 24.0
)

var algorithms = map[string]string{
	AlgorithmLayered:  "dot",
	AlgorithmForce:    "fdp",
	AlgorithmStress:   "neato",
	AlgorithmRadial:   "twopi",
	AlgorithmCircular: "circo",
}

var nestedAlgorithms = map[string]string{
	NestedBox:          "osage",
	NestedRectStacking: "patchwork",
}

var directions = []string{"TB", "BT", "LR", "RL"}

// Algorithms returns the accepted top-level algorithm names, sorted.
func Algorithms() []string { return slices.Sorted(maps.Keys(algorithms)) }

// NestedAlgorithms returns the accepted nested algorithm names, sorted.
func NestedAlgorithms() []string { return slices.Sorted(maps.Keys(nestedAlgorithms)) }

// IsNestedAlgorithm reports whether s is "box" or "rectstacking".
func IsNestedAlgorithm(s string) bool {
	_, ok := nestedAlgorithms[s]
	return ok
}

// IsAlgorithm reports whether s is an accepted top-level algorithm.
func IsAlgorithm(s string) bool {
	_, ok := algorithms[s]
	return ok
}

// Options configures a layout run. Lengths are board units.
type Options struct {
	Algorithm       string  `json:"algorithm,omitempty"`
	NestedAlgorithm string  `json:"nestedAlgorithm,omitempty"`
	Direction       string  `json:"direction,omitempty"` // TB, BT, LR or RL; layered only
	NodeWidth       float64 `json:"nodeWidth,omitempty"`
	NodeHeight      float64 `json:"nodeHeight,omitempty"`
	NodeSep         float64 `json:"nodeSep,omitempty"`
	RankSep         float64 `json:"rankSep,omitempty"`
	Padding         float64 `json:"padding,omitempty"` // inside compound nodes

	// Refresh bypasses the layout cache.
	Refresh bool `json:"refresh,omitempty"`
}

// WithDefaults fills unset fields.
func (o Options) WithDefaults() Options {
	if o.Algorithm == "" {
		o.Algorithm = AlgorithmLayered
	}
	if o.Direction == "" {
		o.Direction = "TB"
	}
	o.Direction = strings.ToUpper(o.Direction)
	if o.NodeWidth <= 0 {
		o.NodeWidth = DefaultNodeWidth
	}
	if o.NodeHeight <= 0 {
		o.NodeHeight = DefaultNodeHeight
	}
	if o.NodeSep <= 0 {
		o.NodeSep = DefaultNodeSep
	}
	if o.RankSep <= 0 {
		o.RankSep = DefaultRankSep
	}
	if o.Padding <= 0 {
		o.Padding = DefaultPadding
	}
	return o
}

// Validate checks algorithm names and direction against their allow-lists.
// Call it on options returned by WithDefaults; an empty algorithm is invalid.
func (o Options) Validate() error {
	if !IsAlgorithm(o.Algorithm) {
		return apperrors.New(apperrors.ErrCodeInvalidAlgorithm,
			"unknown algorithm %q (valid: %s)", o.Algorithm, strings.Join(Algorithms(), ", "))
	}
	if o.NestedAlgorithm != "" && !IsNestedAlgorithm(o.NestedAlgorithm) {
		return apperrors.New(apperrors.ErrCodeInvalidAlgorithm,
			"unknown nested algorithm %q (valid: %s)", o.NestedAlgorithm, strings.Join(NestedAlgorithms(), ", "))
	}
	if o.Direction != "" && !slices.Contains(directions, strings.ToUpper(o.Direction)) {
		return apperrors.New(apperrors.ErrCodeInvalidInput,
			"unknown direction %q (valid: %s)", o.Direction, strings.Join(directions, ", "))
	}
	return nil
}

// Program returns the Graphviz program for the top-level algorithm.
func (o Options) Program() string { return algorithms[o.Algorithm] }

// nestedProgram returns the Graphviz program for compound children.
// Nested graphs without an explicit choice use box packing.
func (o Options) nestedProgram() string {
	if p, ok := nestedAlgorithms[o.NestedAlgorithm]; ok {
		return p
	}
	return nestedAlgorithms[NestedBox]
}

// IsProgram reports whether p is a Graphviz program the engine may run.
func IsProgram(p string) bool {
	return slices.Contains(slices.Collect(maps.Values(algorithms)), p) ||
		slices.Contains(slices.Collect(maps.Values(nestedAlgorithms)), p)
}

func inches(u float64) float64 { return units.BoardUnitsToInches(u) }
