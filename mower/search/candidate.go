package search

import (
	"context"

	"github.com/zyedidia/generic/heap"
	"github.com/zyedidia/generic/mapset"

	"github.com/wricardo/lawnmower/mower/grid"
)

// cellSet is a fixed-size bitset. Values are never mutated after being
// attached to a candidate; with returns a modified copy.
type cellSet []uint64

func newCellSet(n int) cellSet {
	return make(cellSet, (n+63)/64)
}

func (s cellSet) has(i int) bool {
	return s[i/64]&(1<<(uint(i)%64)) != 0
}

func (s cellSet) with(i int) cellSet {
	out := make(cellSet, len(s))
	copy(out, s)
	out[i/64] |= 1 << (uint(i) % 64)
	return out
}

// candidate is a partial route. The path is stored as a parent chain so
// extending a candidate never touches the ones already in the frontier.
type candidate struct {
	pos       grid.Position
	parent    *candidate
	length    int
	visited   cellSet
	collected cellSet
	count     int
	cost      int
	seq       uint64
}

func (c *candidate) path() []grid.Position {
	path := make([]grid.Position, c.length)
	for node, i := c, c.length-1; node != nil; node, i = node.parent, i-1 {
		path[i] = node.pos
	}
	return path
}

func lessCandidate(a, b *candidate) bool {
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	return a.seq < b.seq
}

// searchCandidates runs the best-first search over partial paths.
// With StrategyShared the remaining-target set used by the heuristic is
// one set for the whole search, and a target leaves it the first time any
// candidate steps on it.
func searchCandidates(ctx context.Context, g *grid.Grid, options Options) (Result, error) {
	targets := g.Targets()
	total := len(targets)
	shared := options.Strategy == StrategyShared

	var remaining mapset.Set[grid.Position]
	if shared {
		remaining = g.TargetSet()
	}

	heuristic := func(c *candidate) int {
		best := -1
		if shared {
			remaining.Each(func(t grid.Position) {
				if d := grid.Manhattan(c.pos, t); best < 0 || d < best {
					best = d
				}
			})
		} else if c.count < total {
			for i, t := range targets {
				if c.collected.has(i) {
					continue
				}
				if d := grid.Manhattan(c.pos, t); best < 0 || d < best {
					best = d
				}
			}
		}
		if best < 0 {
			// nothing left to collect: head home
			return grid.Manhattan(c.pos, grid.Origin)
		}
		return best
	}

	frontier := heap.New[*candidate](lessCandidate)
	result := fallback(g, options.Strategy)
	var seq uint64

	push := func(c *candidate) {
		c.seq = seq
		seq++
		frontier.Push(c)
		result.Pushed++
		if size := frontier.Size(); size > result.MaxFrontier {
			result.MaxFrontier = size
		}
	}

	seed := &candidate{
		pos:       grid.Origin,
		length:    1,
		visited:   newCellSet(g.Size()).with(g.CellIndex(grid.Origin)),
		collected: newCellSet(total),
	}
	if ti := g.TargetIndex(grid.Origin); ti >= 0 {
		seed.collected = seed.collected.with(ti)
		seed.count = 1
		if shared {
			remaining.Remove(grid.Origin)
		}
	}
	seed.cost = heuristic(seed)
	push(seed)

	pops := 0
	for frontier.Size() > 0 {
		pops++
		if pops%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return result, err
			}
		}

		current, _ := frontier.Pop()

		if current.count == total && current.pos == grid.Origin {
			result.Path = current.path()
			result.Found = true
			result.Steps = len(result.Path) - 1
			return result, nil
		}

		if options.MaxExpansions > 0 && result.Expanded >= options.MaxExpansions {
			return result, ErrExpansionLimit
		}
		result.Expanded++

		if options.Observer != nil && result.Expanded%options.ProgressEvery == 0 {
			options.Observer(Progress{
				Expanded:  result.Expanded,
				Frontier:  frontier.Size(),
				Collected: current.count,
				Targets:   total,
				Current:   current.pos,
			})
		}

		complete := current.count == total
		for _, next := range g.Neighbors(current.pos) {
			idx := g.CellIndex(next)
			if current.visited.has(idx) && !(complete && next == grid.Origin) {
				continue
			}

			child := &candidate{
				pos:       next,
				parent:    current,
				length:    current.length + 1,
				visited:   current.visited.with(idx),
				collected: current.collected,
				count:     current.count,
			}
			if ti := g.TargetIndex(next); ti >= 0 && !current.collected.has(ti) {
				child.collected = current.collected.with(ti)
				child.count++
				if shared {
					remaining.Remove(next)
				}
			}
			child.cost = child.length + heuristic(child)
			push(child)
		}
	}

	return result, ErrNoRoute
}
