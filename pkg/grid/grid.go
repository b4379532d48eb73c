// Package grid holds the paintable piano-roll state and turns it into notes
package grid

import (
	"errors"
	"fmt"
)

// LabelColumn is reserved for pitch names and is never painted or sounded
const LabelColumn = 0

// ErrTooNarrow is returned for grids without a paintable column
var ErrTooNarrow = errors.New("grid needs at least one column beside the label column")

// Grid is a height x width matrix of cells. Rows map to pitches (row 0 is
// the highest), columns map to time steps.
type Grid struct {
	width  int
	height int
	cells  [][]bool
}

// New creates an empty grid
func New(width, height int) (*Grid, error) {
	if height <= 0 {
		return nil, fmt.Errorf("invalid grid height %d", height)
	}
	if width < 2 {
		return nil, ErrTooNarrow
	}

	cells := make([][]bool, height)
	for i := range cells {
		cells[i] = make([]bool, width)
	}
	return &Grid{width: width, height: height, cells: cells}, nil
}

// Width returns the number of columns, including the label column
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows
func (g *Grid) Height() int { return g.height }

// Paint turns a cell on. Coordinates outside the paintable area are ignored.
func (g *Grid) Paint(row, col int) {
	g.Set(row, col, true)
}

// Erase turns a cell off. Coordinates outside the paintable area are ignored.
func (g *Grid) Erase(row, col int) {
	g.Set(row, col, false)
}

// Set writes a cell if it lies in the paintable area
func (g *Grid) Set(row, col int, on bool) {
	if !g.paintable(row, col) {
		return
	}
	g.cells[row][col] = on
}

// Clear turns every cell off
func (g *Grid) Clear() {
	for _, row := range g.cells {
		for col := range row {
			row[col] = false
		}
	}
}

// Cell reports whether a cell is painted; out of range cells read as off
func (g *Grid) Cell(row, col int) bool {
	if row < 0 || row >= g.height || col < 0 || col >= g.width {
		return false
	}
	return g.cells[row][col]
}

// Painted counts painted cells
func (g *Grid) Painted() int {
	n := 0
	for _, row := range g.cells {
		for _, on := range row {
			if on {
				n++
			}
		}
	}
	return n
}

func (g *Grid) paintable(row, col int) bool {
	return row >= 0 && row < g.height && col > LabelColumn && col < g.width
}
