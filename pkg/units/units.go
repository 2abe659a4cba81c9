// Package units converts between physical lengths and board units.
//
// A board unit is the CSS pixel used by the Miro canvas: 96 board units make
// one inch and one inch is exactly 25.4 millimetres. Graphviz reports
// coordinates in PostScript points (72 per inch) and sizes in inches, so the
// layout engine converts through this package too.
package units

const (
	// BoardUnitsPerInch is the canvas resolution.
	BoardUnitsPerInch = 96.0
	// MmPerInch is the exact length of an inch in millimetres.
	MmPerInch = 25.4
	// PointsPerInch is the PostScript point resolution used by Graphviz.
	PointsPerInch = 72.0
)

// MmToBoardUnits converts millimetres to board units.
func MmToBoardUnits(mm float64) float64 { return mm / MmPerInch * BoardUnitsPerInch }

// BoardUnitsToMm converts board units to millimetres.
func BoardUnitsToMm(u float64) float64 { return u / BoardUnitsPerInch * MmPerInch }

// InchesToBoardUnits converts inches to board units.
func InchesToBoardUnits(in float64) float64 { return in * BoardUnitsPerInch }

// BoardUnitsToInches converts board units to inches.
func BoardUnitsToInches(u float64) float64 { return u / BoardUnitsPerInch }

// PointsToBoardUnits converts PostScript points to board units.
func PointsToBoardUnits(pt float64) float64 { return pt / PointsPerInch * BoardUnitsPerInch }

// BoardUnitsToPoints converts board units to PostScript points.
func BoardUnitsToPoints(u float64) float64 { return u / BoardUnitsPerInch * PointsPerInch }
