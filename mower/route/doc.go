// Package route checks and renders collector routes.
//
// Verify reports whether a path is a closed, contiguous walk from the origin
// that steps on every target. Directions and Follow convert between position
// lists and up/down/left/right moves, and Overlay draws a path over the grid
// for terminal output.
package route
