package spatial

import (
	"fmt"
	"math"
)

// Grid partitions a frame into equal cells used when no detected shelf
// covers a point.
type Grid struct {
	Columns int
	Rows    int
}

// DefaultGrid splits the frame into 5 columns and 4 rows.
var DefaultGrid = Grid{Columns: 5, Rows: 4}

func (g Grid) normalized() Grid {
	if g.Columns <= 0 || g.Rows <= 0 {
		return DefaultGrid
	}
	return g
}

// Cell returns the cell containing (x, y). Cell sizes use integer division
// of the frame size, so points on or past the right/bottom edge are clamped
// into the last column/row.
func (g Grid) Cell(x, y float64, frameWidth, frameHeight int) (int, int) {
	g = g.normalized()

	cellWidth := frameWidth / g.Columns
	if cellWidth <= 0 {
		cellWidth = 1
	}
	cellHeight := frameHeight / g.Rows
	if cellHeight <= 0 {
		cellHeight = 1
	}

	col := clamp(math.Floor(x/float64(cellWidth)), g.Columns-1)
	row := clamp(math.Floor(y/float64(cellHeight)), g.Rows-1)
	return col, row
}

// ShelfID names the synthetic shelf of a cell.
func (g Grid) ShelfID(col, row int) string {
	return fmt.Sprintf("shelf_%d_%d", col, row)
}

func clamp(v float64, max int) int {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > float64(max) {
		return max
	}
	return int(v)
}
