package route

import (
	"errors"
	"fmt"

	"github.com/wricardo/lawnmower/mower/grid"
)

var ErrNotAdjacent = errors.New("consecutive positions are not adjacent")

// Report describes how well a path satisfies the collector route rules
type Report struct {
	Valid    bool            `json:"valid"`
	Closed   bool            `json:"closed"`
	Steps    int             `json:"steps"`
	Covered  int             `json:"covered"`
	Total    int             `json:"total"`
	Missing  []grid.Position `json:"missing,omitempty"`
	Problems []string        `json:"problems,omitempty"`
}

// Verify checks that path starts and ends at the origin, stays inside g,
// moves one cell at a time and steps on every target.
func Verify(g *grid.Grid, path []grid.Position) Report {
	report := Report{Total: g.TargetCount()}

	if len(path) == 0 {
		report.Problems = append(report.Problems, "path is empty")
		report.Missing = g.Targets()
		return report
	}
	report.Steps = len(path) - 1

	if path[0] != grid.Origin {
		report.Problems = append(report.Problems, fmt.Sprintf("path starts at %s, not at the origin", path[0]))
	}
	if last := path[len(path)-1]; last != grid.Origin {
		report.Problems = append(report.Problems, fmt.Sprintf("path ends at %s, not at the origin", last))
	}
	report.Closed = path[0] == grid.Origin && path[len(path)-1] == grid.Origin

	visited := make(map[grid.Position]bool, len(path))
	for i, p := range path {
		if !g.InBounds(p) {
			report.Problems = append(report.Problems, fmt.Sprintf("step %d at %s is outside the %dx%d grid", i, p, g.Rows(), g.Cols()))
		}
		if i > 0 && grid.Manhattan(path[i-1], p) != 1 {
			report.Problems = append(report.Problems, fmt.Sprintf("step %d jumps from %s to %s", i, path[i-1], p))
		}
		visited[p] = true
	}

	for _, t := range g.Targets() {
		if visited[t] {
			report.Covered++
		} else {
			report.Missing = append(report.Missing, t)
		}
	}
	if len(report.Missing) > 0 {
		report.Problems = append(report.Problems, fmt.Sprintf("%d of %d targets not visited", len(report.Missing), report.Total))
	}

	report.Valid = len(report.Problems) == 0
	return report
}

// Directions encodes a path as the moves between consecutive positions
func Directions(path []grid.Position) ([]string, error) {
	if len(path) < 2 {
		return []string{}, nil
	}
	moves := make([]string, 0, len(path)-1)
	for i := 1; i < len(path); i++ {
		d, ok := grid.DirectionBetween(path[i-1], path[i])
		if !ok {
			return nil, fmt.Errorf("step %d (%s -> %s): %w", i, path[i-1], path[i], ErrNotAdjacent)
		}
		moves = append(moves, d.Name)
	}
	return moves, nil
}

// Follow replays moves from the origin and returns the visited positions.
func Follow(moves []string) ([]grid.Position, error) {
	path := []grid.Position{grid.Origin}
	current := grid.Origin
	for i, name := range moves {
		d, ok := grid.ParseDirection(name)
		if !ok {
			return nil, fmt.Errorf("move %d: unknown direction %q", i, name)
		}
		current = current.Step(d)
		path = append(path, current)
	}
	return path, nil
}

// Overlay markers
const (
	MarkOrigin    = 'O'
	MarkCollected = '*'
	MarkTarget    = '+'
	MarkTraversed = '#'
	MarkPlain     = '.'
)

// Overlay renders g with path drawn over it, one string per row.
func Overlay(g *grid.Grid, path []grid.Position) []string {
	onPath := make(map[grid.Position]bool, len(path))
	for _, p := range path {
		onPath[p] = true
	}

	rows := make([]string, g.Rows())
	for r := 0; r < g.Rows(); r++ {
		line := make([]rune, g.Cols())
		for c := 0; c < g.Cols(); c++ {
			p := grid.Position{Row: r, Col: c}
			switch {
			case p == grid.Origin:
				line[c] = MarkOrigin
			case g.IsTarget(p) && onPath[p]:
				line[c] = MarkCollected
			case g.IsTarget(p):
				line[c] = MarkTarget
			case onPath[p]:
				line[c] = MarkTraversed
			default:
				line[c] = MarkPlain
			}
		}
		rows[r] = string(line)
	}
	return rows
}
