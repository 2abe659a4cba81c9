package layout

import (
	"testing"

	apperrors "github.com/matzehuels/boardsync/pkg/errors"
)

func TestIsNestedAlgorithm(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"box", true},
		{"rectstacking", true},
		{"", false},
		{"Box", false},
		{"box ", false},
		{"layered", false},
		{"osage", false},
		{"rectStacking", false},
		{"null", false},
		{"undefined", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := IsNestedAlgorithm(tt.in); got != tt.want {
				t.Errorf("IsNestedAlgorithm(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		wantCode apperrors.Code
	}{
		{"defaults", Options{}, ""},
		{"force", Options{Algorithm: "force"}, ""},
		{"nested box", Options{NestedAlgorithm: "box"}, ""},
		{"lowercase direction", Options{Direction: "lr"}, ""},
		{"unknown algorithm", Options{Algorithm: "spring"}, apperrors.ErrCodeInvalidAlgorithm},
		{"graphviz program name", Options{Algorithm: "dot"}, apperrors.ErrCodeInvalidAlgorithm},
		{"injection", Options{Algorithm: "layered; rm -rf"}, apperrors.ErrCodeInvalidAlgorithm},
		{"unknown nested", Options{NestedAlgorithm: "grid"}, apperrors.ErrCodeInvalidAlgorithm},
		{"bad direction", Options{Direction: "UP"}, apperrors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.WithDefaults().Validate()
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("Validate() = %v", err)
				}
				return
			}
			if !apperrors.Is(err, tt.wantCode) {
				t.Errorf("Validate() = %v, want %s", err, tt.wantCode)
			}
		})
	}
}

func TestWithDefaults(t *testing.T) {
	o := Options{}.WithDefaults()
	if o.Algorithm != AlgorithmLayered || o.Direction != "TB" || o.NodeWidth != DefaultNodeWidth {
		t.Errorf("WithDefaults() = %+v", o)
	}
	if got := (Options{}).nestedProgram(); got != "osage" {
		t.Errorf("default nested program = %s, want osage", got)
	}
	if got := (Options{NestedAlgorithm: NestedRectStacking}).nestedProgram(); got != "patchwork" {
		t.Errorf("rectstacking program = %s, want patchwork", got)
	}
}

func TestIsProgram(t *testing.T) {
	for _, p := range []string{"dot", "fdp", "neato", "twopi", "circo", "osage", "patchwork"} {
		if !IsProgram(p) {
			t.Errorf("IsProgram(%q) = false", p)
		}
	}
	for _, p := range []string{"", "sfdp", "nop", "dot -Tpng"} {
		if IsProgram(p) {
			t.Errorf("IsProgram(%q) = true", p)
		}
	}
}
