package search

import (
	"context"
	"fmt"
	"math/bits"

	"github.com/zyedidia/generic/heap"

	"github.com/wricardo/lawnmower/mower/grid"
)

// MaxStateTargets is the largest target count the state strategy accepts
const MaxStateTargets = 64

type stateKey struct {
	pos  grid.Position
	mask uint64
}

type stateNode struct {
	key    stateKey
	steps  int
	cost   int
	parent *stateNode
	seq    uint64
}

func lessState(a, b *stateNode) bool {
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	return a.seq < b.seq
}

// searchStates runs A* over (position, collected mask) states. Revisiting a
// cell is allowed, and two partial routes that reach the same cell with the
// same targets collected are merged, so the first goal popped is a shortest
// closed tour.
func searchStates(ctx context.Context, g *grid.Grid, options Options) (Result, error) {
	targets := g.Targets()
	total := len(targets)
	if total > MaxStateTargets {
		return fallback(g, options.Strategy), fmt.Errorf("%w: %d targets (max %d)", ErrTooManyTargets, total, MaxStateTargets)
	}

	full := uint64(1)<<uint(total) - 1
	if total == MaxStateTargets {
		full = ^uint64(0)
	}

	// Admissible and consistent: every remaining target must still be
	// reached and the route must end at the origin.
	heuristic := func(key stateKey) int {
		if key.mask == full {
			return grid.Manhattan(key.pos, grid.Origin)
		}
		best := 0
		for i, t := range targets {
			if key.mask&(1<<uint(i)) != 0 {
				continue
			}
			if d := grid.Manhattan(key.pos, t) + grid.Manhattan(t, grid.Origin); d > best {
				best = d
			}
		}
		return best
	}

	collect := func(mask uint64, p grid.Position) uint64 {
		if ti := g.TargetIndex(p); ti >= 0 {
			mask |= 1 << uint(ti)
		}
		return mask
	}

	frontier := heap.New[*stateNode](lessState)
	bestSteps := make(map[stateKey]int)
	closed := make(map[stateKey]bool)
	result := fallback(g, options.Strategy)
	var seq uint64

	push := func(n *stateNode) {
		n.seq = seq
		seq++
		frontier.Push(n)
		result.Pushed++
		if size := frontier.Size(); size > result.MaxFrontier {
			result.MaxFrontier = size
		}
	}

	startKey := stateKey{pos: grid.Origin, mask: collect(0, grid.Origin)}
	bestSteps[startKey] = 0
	push(&stateNode{key: startKey, cost: heuristic(startKey)})

	pops := 0
	for frontier.Size() > 0 {
		pops++
		if pops%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return result, err
			}
		}

		current, _ := frontier.Pop()
		if closed[current.key] {
			continue
		}
		closed[current.key] = true

		if current.key.mask == full && current.key.pos == grid.Origin {
			result.Path = reconstructStates(current)
			result.Found = true
			result.Steps = current.steps
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
				Collected: bits.OnesCount64(current.key.mask),
				Targets:   total,
				Current:   current.key.pos,
			})
		}

		for _, next := range g.Neighbors(current.key.pos) {
			key := stateKey{pos: next, mask: collect(current.key.mask, next)}
			if closed[key] {
				continue
			}
			steps := current.steps + 1
			if prev, ok := bestSteps[key]; ok && prev <= steps {
				continue
			}
			bestSteps[key] = steps
			push(&stateNode{
				key:    key,
				steps:  steps,
				cost:   steps + heuristic(key),
				parent: current,
			})
		}
	}

	return result, ErrNoRoute
}

func reconstructStates(node *stateNode) []grid.Position {
	path := make([]grid.Position, node.steps+1)
	for i := node.steps; node != nil; node, i = node.parent, i-1 {
		path[i] = node.key.pos
	}
	return path
}
