// Package grid provides the yard model for the Lawnmower Route Planner.
//
// The grid package implements:
//   - Immutable rectangular grids of plain and target cells
//   - Positions, the fixed origin and Manhattan distance
//   - Layout parsing with a configurable legend
//   - Yard configuration validation
//
// Core Types:
//
// Grid is an R×C array of Cell markers that never changes once built.
// Position addresses a cell by row and column. YardConfig is the on-disk
// description of a yard (layout strings plus legend) loaded by the config
// manager.
//
// Usage:
//
//	g, err := grid.Parse([]string{
//		".+.",
//		"+..",
//	}, grid.DefaultLegend())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for _, p := range g.Targets() {
//		fmt.Println(p, grid.Manhattan(grid.Origin, p))
//	}
//
// Layout Format:
//
// Each layout string is one row. With the default legend '+' marks long
// grass (a target) and '.', '-' or ' ' mark plain ground. All rows must
// have the same length and the grid must contain at least one cell, since
// the origin (0,0) is where every route starts and ends.
package grid
