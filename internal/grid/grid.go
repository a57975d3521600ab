// Package grid defines the discrete cell space every layout operation works
// in.  Pixel values only appear at the edges: converting for rendering and
// snapping pointer deltas coming from a canvas.
package grid

import "math"

// Point is a cell coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect is a cell rectangle with its top-left corner at (X, Y).
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CellToPixel scales a cell coordinate for rendering.
func CellToPixel(cell int, cellSizePx float64) float64 {
	return float64(cell) * cellSizePx
}

// PixelToCell maps an absolute pixel position to the cell containing it.
func PixelToCell(px, cellSizePx float64) int {
	if cellSizePx <= 0 || math.IsNaN(px) {
		return 0
	}
	return int(math.Floor(px / cellSizePx))
}

// Snap rounds a continuous drag delta to the nearest whole number of cells
// (halves round away from zero).  A non-positive cell size snaps to zero.
func Snap(rawOffsetPx, cellSizePx float64) int {
	if cellSizePx <= 0 || rawOffsetPx == 0 || math.IsNaN(rawOffsetPx) || math.IsInf(rawOffsetPx, 0) {
		return 0
	}
	return int(math.Round(rawOffsetPx / cellSizePx))
}

// Span returns the rectangle covering both cells, inclusive.  A = B gives
// a 1x1 rectangle.
func Span(a, b Point) Rect {
	return Rect{
		X:      min(a.X, b.X),
		Y:      min(a.Y, b.Y),
		Width:  abs(a.X-b.X) + 1,
		Height: abs(a.Y-b.Y) + 1,
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
