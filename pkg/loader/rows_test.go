package loader

import (
	"slices"
	"testing"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", nil},
		{"   ", nil},
		{"hello", "hello"},
		{" padded ", "padded"},
		{"42", 42.0},
		{"-3.5", -3.5},
		{"1e3", 1000.0},
		{"0", 0.0},
		{"0.25", 0.25},
		{"007", "007"},
		{"TRUE", true},
		{"false", false},
		{"NaN", "NaN"},
		{"Inf", "Inf"},
		{"0x10", "0x10"},
		{"1_000", "1_000"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Coerce(tt.in); got != tt.want {
				t.Errorf("Coerce(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseRows(t *testing.T) {
	cells := [][]string{
		{},
		{"", " "},
		{"id", "", "name", "name"},
		{"a", "x", "Alice"},
		{"", "", ""},
		{"b", "", "Bob", "Robert", "overflow"},
	}

	headers, rows := ParseRows(cells)
	if want := []string{"id", "column_2", "name", "name_2"}; !slices.Equal(headers, want) {
		t.Errorf("headers = %v, want %v", headers, want)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0]["name_2"] != nil || rows[0]["column_2"] != "x" {
		t.Errorf("row 0 = %v", rows[0])
	}
	if rows[1]["name_2"] != "Robert" || len(rows[1]) != 4 {
		t.Errorf("row 1 = %v", rows[1])
	}
}

func TestParseRowsEmpty(t *testing.T) {
	headers, rows := ParseRows([][]string{{""}, {}})
	if headers != nil || rows != nil {
		t.Errorf("ParseRows(blank) = %v, %v", headers, rows)
	}
}
