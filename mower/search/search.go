package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wricardo/lawnmower/mower/grid"
)

var (
	ErrNoRoute        = errors.New("no collector route found")
	ErrExpansionLimit = errors.New("expansion limit reached")
	ErrTooManyTargets = errors.New("too many targets for state search")
	ErrNilGrid        = errors.New("grid is nil")
)

// Strategy selects how the frontier is explored
type Strategy string

const (
	StrategyCandidate Strategy = "candidate"
	StrategyShared    Strategy = "shared"
	StrategyState     Strategy = "state"

	// DefaultProgressEvery is how many expansions pass between observer calls
	DefaultProgressEvery = 500

	// ctxCheckEvery is how many pops pass between context checks
	ctxCheckEvery = 256
)

// ParseStrategy maps a strategy name to a Strategy. Empty selects the default.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case "", StrategyCandidate:
		return StrategyCandidate, nil
	case StrategyShared:
		return StrategyShared, nil
	case StrategyState:
		return StrategyState, nil
	default:
		return "", fmt.Errorf("unknown strategy %q (expected candidate, shared or state)", name)
	}
}

// Progress is reported to observers while the search runs
type Progress struct {
	Expanded  int           `json:"expanded"`
	Frontier  int           `json:"frontier"`
	Collected int           `json:"collected"`
	Targets   int           `json:"targets"`
	Current   grid.Position `json:"current"`
}

// Result contains the outcome of a search
type Result struct {
	Path        []grid.Position `json:"path"`
	Found       bool            `json:"found"`
	Steps       int             `json:"steps"`
	Targets     int             `json:"targets"`
	Strategy    Strategy        `json:"strategy"`
	Expanded    int             `json:"expanded"`
	Pushed      int             `json:"pushed"`
	MaxFrontier int             `json:"max_frontier"`
}

// Options defines parameters for the search.
type Options struct {
	Strategy      Strategy
	MaxExpansions int
	ProgressEvery int
	Observer      func(Progress)
}

// Option is a function that modifies Options.
type Option func(*Options)

// WithStrategy selects the search strategy.
func WithStrategy(strategy Strategy) Option {
	return func(options *Options) { options.Strategy = strategy }
}

// WithMaxExpansions stops the search after n expansions. Zero means unbounded.
func WithMaxExpansions(n int) Option {
	return func(options *Options) { options.MaxExpansions = n }
}

// WithObserver registers a callback invoked every ProgressEvery expansions.
func WithObserver(observer func(Progress)) Option {
	return func(options *Options) { options.Observer = observer }
}

// WithProgressEvery sets how often the observer is called.
func WithProgressEvery(n int) Option {
	return func(options *Options) { options.ProgressEvery = n }
}

// CollectorPath returns a route from the origin over every target and back.
// An empty target set yields [origin]. When no route is found the result is
// also [origin]; use Search to tell the two cases apart.
func CollectorPath(g *grid.Grid) []grid.Position {
	result, _ := Search(context.Background(), g)
	return result.Path
}

// Search runs the collector search on g.
func Search(ctx context.Context, g *grid.Grid, options ...Option) (Result, error) {
	if g == nil {
		return Result{}, ErrNilGrid
	}

	searchOptions := Options{
		Strategy:      StrategyCandidate,
		ProgressEvery: DefaultProgressEvery,
	}
	for _, option := range options {
		option(&searchOptions)
	}
	if searchOptions.Strategy == "" {
		searchOptions.Strategy = StrategyCandidate
	}
	if searchOptions.ProgressEvery <= 0 {
		searchOptions.ProgressEvery = DefaultProgressEvery
	}

	if g.TargetCount() == 0 {
		return Result{
			Path:     []grid.Position{grid.Origin},
			Found:    true,
			Strategy: searchOptions.Strategy,
		}, nil
	}

	switch searchOptions.Strategy {
	case StrategyCandidate, StrategyShared:
		return searchCandidates(ctx, g, searchOptions)
	case StrategyState:
		return searchStates(ctx, g, searchOptions)
	default:
		return Result{}, fmt.Errorf("unknown strategy %q", searchOptions.Strategy)
	}
}

// fallback is the single-origin path returned when no route was produced
func fallback(g *grid.Grid, strategy Strategy) Result {
	return Result{
		Path:     []grid.Position{grid.Origin},
		Found:    false,
		Targets:  g.TargetCount(),
		Strategy: strategy,
	}
}
