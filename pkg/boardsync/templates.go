package boardsync

import (
	"maps"
	"slices"
	"strings"

	apperrors "github.com/matzehuels/boardsync/pkg/errors"
)

// DefaultTemplate is used when a row names no template.
const DefaultTemplate = "rectangle"

// Template is a named shape style. Sizes are board units.
type Template struct {
	Shape  string            `json:"shape" toml:"shape"`
	Width  float64           `json:"width" toml:"width"`
	Height float64           `json:"height" toml:"height"`
	Style  map[string]string `json:"style,omitempty" toml:"style"`
}

func style(fill, border string) map[string]string {
	return map[string]string{
		"fillColor":   fill,
		"borderColor": border,
		"borderWidth": "2",
		"textAlign":   "center",
		"fontSize":    "14",
	}
}

// Templates maps template names to shapes. Names are matched
// case-insensitively with spaces and dashes read as underscores.
type Templates map[string]Template

// DefaultTemplates returns the built-in template set.
func DefaultTemplates() Templates {
	return Templates{
		"rectangle":       {Shape: "rectangle", Width: 160, Height: 80, Style: style("#ffffff", "#1a1a1a")},
		"round_rectangle": {Shape: "round_rectangle", Width: 160, Height: 80, Style: style("#e6f0ff", "#2d5bd7")},
		"circle":          {Shape: "circle", Width: 100, Height: 100, Style: style("#fff6b6", "#c9a400")},
		"triangle":        {Shape: "triangle", Width: 120, Height: 104, Style: style("#ffe0e0", "#d43f3f")},
		"rhombus":         {Shape: "rhombus", Width: 140, Height: 100, Style: style("#f3e6ff", "#8a3ffc")},
		"parallelogram":   {Shape: "parallelogram", Width: 180, Height: 80, Style: style("#e0f7ef", "#1f9e6e")},
		"hexagon":         {Shape: "hexagon", Width: 140, Height: 120, Style: style("#fff0e0", "#e07b00")},
		"octagon":         {Shape: "octagon", Width: 120, Height: 120, Style: style("#f0f0f0", "#555555")},
		"cloud":           {Shape: "cloud", Width: 180, Height: 110, Style: style("#eef7ff", "#5a8fd6")},
		"star":            {Shape: "star", Width: 120, Height: 120, Style: style("#fffbe6", "#d9a300")},
		"can":             {Shape: "can", Width: 120, Height: 140, Style: style("#e8e8ff", "#4b4bbf")},
	}
}

// Names returns the template names, sorted.
func (t Templates) Names() []string { return slices.Sorted(maps.Keys(t)) }

// Lookup resolves name. An empty name resolves to [DefaultTemplate]; an
// unknown name is an INVALID_TEMPLATE error.
func (t Templates) Lookup(name string) (Template, error) {
	n := normalizeTemplate(name)
	if n == "" {
		n = DefaultTemplate
	}
	if tmpl, ok := t[n]; ok {
		return tmpl, nil
	}
	return Template{}, apperrors.New(apperrors.ErrCodeInvalidTemplate,
		"unknown template %q (known: %s)", name, strings.Join(t.Names(), ", "))
}

func normalizeTemplate(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(n)
}
