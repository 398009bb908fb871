package route

import "github.com/wricardo/lawnmower/mower/grid"

// Analysis summarizes what any collector route over a grid must satisfy
type Analysis struct {
	Rows             int             `json:"rows"`
	Cols             int             `json:"cols"`
	Targets          int             `json:"targets"`
	Farthest         grid.Position   `json:"farthest"`
	FarthestDistance int             `json:"farthest_distance"`
	LowerBound       int             `json:"lower_bound"`
	DeadEnds         []grid.Position `json:"dead_ends,omitempty"`
}

// NeedsRevisits reports whether every route must step on some cell twice,
// which the candidate and shared strategies never do.
func (a Analysis) NeedsRevisits() bool {
	return len(a.DeadEnds) > 0
}

// Analyze computes a lower bound on route length and the dead ends that
// rule out routes without revisits.
//
// The bound is the larger of the round trip to the farthest target and the
// number of distinct cells the route must touch, rounded up to even since
// every closed walk on a grid has even length.
func Analyze(g *grid.Grid) Analysis {
	a := Analysis{Rows: g.Rows(), Cols: g.Cols(), Targets: g.TargetCount()}

	var pending []grid.Position
	for _, t := range g.Targets() {
		if t == grid.Origin {
			continue
		}
		pending = append(pending, t)
		if d := grid.Manhattan(grid.Origin, t); d > a.FarthestDistance {
			a.Farthest, a.FarthestDistance = t, d
		}
	}
	if len(pending) == 0 {
		return a
	}

	bound := 2 * a.FarthestDistance
	if cells := len(pending) + 1; cells > bound {
		bound = cells
	}
	a.LowerBound = bound + bound%2

	// a lone neighbor of the origin is covered by stepping out and back
	if len(pending) == 1 && a.FarthestDistance == 1 {
		return a
	}

	// longer simple cycles need two exits from every cell on them
	if len(g.Neighbors(grid.Origin)) < 2 {
		a.DeadEnds = append(a.DeadEnds, grid.Origin)
	}
	for _, t := range pending {
		if len(g.Neighbors(t)) < 2 {
			a.DeadEnds = append(a.DeadEnds, t)
		}
	}
	return a
}
