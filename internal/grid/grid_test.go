package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnap(t *testing.T) {
	tests := []struct {
		name   string
		raw    float64
		cellPx float64
		want   int
	}{
		{name: "zero delta", raw: 0, cellPx: 30, want: 0},
		{name: "below half", raw: 14, cellPx: 30, want: 0},
		{name: "one point four cells", raw: 42, cellPx: 30, want: 1},
		{name: "half rounds away", raw: 45, cellPx: 30, want: 2},
		{name: "negative", raw: -42, cellPx: 30, want: -1},
		{name: "negative half", raw: -45, cellPx: 30, want: -2},
		{name: "zero cell size", raw: 90, cellPx: 0, want: 0},
		{name: "negative cell size", raw: 90, cellPx: -30, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Snap(tt.raw, tt.cellPx))
		})
	}
}

func TestSnapIdempotent(t *testing.T) {
	for _, cellPx := range []float64{1, 7.5, 30, 48} {
		assert.Equal(t, 0, Snap(0, cellPx))
		for n := -5; n <= 5; n++ {
			snapped := Snap(CellToPixel(n, cellPx), cellPx)
			assert.Equal(t, n, snapped)
			assert.Equal(t, snapped, Snap(CellToPixel(snapped, cellPx), cellPx))
		}
	}
}

func TestPixelToCell(t *testing.T) {
	assert.Equal(t, 0, PixelToCell(29.9, 30))
	assert.Equal(t, 1, PixelToCell(30, 30))
	assert.Equal(t, -1, PixelToCell(-0.1, 30))
	assert.Equal(t, 0, PixelToCell(100, 0))
}

func TestSpan(t *testing.T) {
	assert.Equal(t, Rect{X: 2, Y: 2, Width: 3, Height: 4}, Span(Point{2, 2}, Point{4, 5}))
	assert.Equal(t, Rect{X: 2, Y: 2, Width: 3, Height: 4}, Span(Point{4, 5}, Point{2, 2}))
	assert.Equal(t, Rect{X: 7, Y: 1, Width: 1, Height: 1}, Span(Point{7, 1}, Point{7, 1}))
}
