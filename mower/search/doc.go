// Package search finds collector routes: walks that leave the origin,
// step on every target cell of a grid and come back to the origin.
//
// It exposes two entry points:
//
//   - CollectorPath: the plain calling convention. Takes a grid, returns the
//     route, and falls back to a single-origin path when nothing is found.
//   - Search: the same search with a context, options, statistics and a
//     typed error (ErrNoRoute, ErrExpansionLimit) instead of the silent
//     fallback.
//
// Three strategies are available. StrategyCandidate (default) is a best-first
// search over partial paths ordered by path length plus the Manhattan
// distance to the nearest target the candidate has not collected yet. A
// candidate never steps on a cell it already walked over, except for the
// final move back onto the origin once every target is collected, so routes
// that need to retrace a cell are not found. StrategyShared is the same
// search with a single remaining-target set shared by all candidates, kept
// for parity with earlier planner output. StrategyState searches indexed
// (position, collected mask) states, allows revisits and returns a shortest
// closed tour for yards with up to 64 targets.
package search
