package units

import (
	"math"
	"testing"
)

const tolerance = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) <= tolerance*math.Max(1, math.Abs(b))
}

func TestKnownValues(t *testing.T) {
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"1in in units", InchesToBoardUnits(1), 96},
		{"25.4mm in units", MmToBoardUnits(25.4), 96},
		{"96 units in mm", BoardUnitsToMm(96), 25.4},
		{"48 units in inches", BoardUnitsToInches(48), 0.5},
		{"72pt in units", PointsToBoardUnits(72), 96},
		{"96 units in points", BoardUnitsToPoints(96), 72},
		{"10mm in units", MmToBoardUnits(10), 37.79527559055118},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !approx(tt.got, tt.want) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	values := []float64{1e-6, 0.1, 1, 3.2, 25.4, 96, 1234.5678, 1e9}

	for _, x := range values {
		if got := BoardUnitsToMm(MmToBoardUnits(x)); !approx(got, x) {
			t.Errorf("mm round trip of %v = %v", x, got)
		}
		if got := BoardUnitsToInches(InchesToBoardUnits(x)); !approx(got, x) {
			t.Errorf("inch round trip of %v = %v", x, got)
		}
		if got := BoardUnitsToPoints(PointsToBoardUnits(x)); !approx(got, x) {
			t.Errorf("point round trip of %v = %v", x, got)
		}
	}
}
