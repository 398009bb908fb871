package grid

import (
	"errors"
	"fmt"

	"github.com/zyedidia/generic/mapset"
)

// Cell represents the marker of a single grid cell
type Cell uint8

const (
	Plain Cell = iota
	Target
)

const (
	// Validation constants
	MaxRows = 64
	MaxCols = 64
)

var (
	ErrEmptyGrid      = errors.New("grid must have at least one row and one column")
	ErrNotRectangular = errors.New("grid rows must all have the same length")
	ErrTooLarge       = errors.New("grid exceeds maximum dimensions")
)

// String returns the marker name used in configs and API responses
func (c Cell) String() string {
	switch c {
	case Plain:
		return "plain"
	case Target:
		return "target"
	default:
		return "unknown"
	}
}

// Position represents row,col coordinates
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Origin is where every route starts and ends
var Origin = Position{Row: 0, Col: 0}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// Grid is an immutable rectangular yard
type Grid struct {
	rows    int
	cols    int
	cells   []Cell
	targets []Position
	index   map[Position]int
}

// New builds a grid from rows of cells. The input is copied.
func New(cells [][]Cell) (*Grid, error) {
	if len(cells) == 0 || len(cells[0]) == 0 {
		return nil, ErrEmptyGrid
	}
	rows, cols := len(cells), len(cells[0])
	if rows > MaxRows || cols > MaxCols {
		return nil, fmt.Errorf("%w: %dx%d (max %dx%d)", ErrTooLarge, rows, cols, MaxRows, MaxCols)
	}

	g := &Grid{
		rows:  rows,
		cols:  cols,
		cells: make([]Cell, 0, rows*cols),
		index: make(map[Position]int),
	}
	for r, row := range cells {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d cells, expected %d", ErrNotRectangular, r, len(row), cols)
		}
		for c, cell := range row {
			if cell != Plain && cell != Target {
				return nil, fmt.Errorf("invalid cell marker %d at (%d,%d)", cell, r, c)
			}
			g.cells = append(g.cells, cell)
			if cell == Target {
				pos := Position{Row: r, Col: c}
				g.index[pos] = len(g.targets)
				g.targets = append(g.targets, pos)
			}
		}
	}

	return g, nil
}

// Rows returns the number of rows
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns
func (g *Grid) Cols() int { return g.cols }

// Size returns the number of cells
func (g *Grid) Size() int { return g.rows * g.cols }

// InBounds reports whether p lies inside the grid
func (g *Grid) InBounds(p Position) bool {
	return p.Row >= 0 && p.Row < g.rows && p.Col >= 0 && p.Col < g.cols
}

// At returns the cell at p. Out of bounds positions read as Plain.
func (g *Grid) At(p Position) Cell {
	if !g.InBounds(p) {
		return Plain
	}
	return g.cells[p.Row*g.cols+p.Col]
}

// IsTarget reports whether p is a target cell
func (g *Grid) IsTarget(p Position) bool {
	return g.At(p) == Target
}

// CellIndex returns the row-major index of p, used for compact cell sets
func (g *Grid) CellIndex(p Position) int {
	return p.Row*g.cols + p.Col
}

// Targets returns target positions in row-major order
func (g *Grid) Targets() []Position {
	out := make([]Position, len(g.targets))
	copy(out, g.targets)
	return out
}

// TargetCount returns the number of target cells
func (g *Grid) TargetCount() int {
	return len(g.targets)
}

// TargetIndex returns the ordinal of a target position, or -1 for plain cells
func (g *Grid) TargetIndex(p Position) int {
	if i, ok := g.index[p]; ok {
		return i
	}
	return -1
}

// TargetSet returns a fresh mutable set of all target positions
func (g *Grid) TargetSet() mapset.Set[Position] {
	set := mapset.New[Position]()
	for _, p := range g.targets {
		set.Put(p)
	}
	return set
}

// Neighbors returns in-bounds neighbors of p in up, down, left, right order
func (g *Grid) Neighbors(p Position) []Position {
	out := make([]Position, 0, 4)
	for _, d := range Directions {
		n := p.Step(d)
		if g.InBounds(n) {
			out = append(out, n)
		}
	}
	return out
}

// Manhattan calculates the Manhattan distance between two positions
func Manhattan(from, to Position) int {
	dr := from.Row - to.Row
	if dr < 0 {
		dr = -dr
	}
	dc := from.Col - to.Col
	if dc < 0 {
		dc = -dc
	}
	return dr + dc
}
