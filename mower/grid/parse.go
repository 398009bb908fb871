package grid

import (
	"fmt"
	"strings"
)

// Legend maps layout characters to cell markers
type Legend map[rune]Cell

// DefaultLegend returns the legend used when a yard does not declare one
func DefaultLegend() Legend {
	return Legend{
		'+': Target,
		'.': Plain,
		'-': Plain,
		' ': Plain,
	}
}

// LegendFromConfig converts the string form used in yard files
// ({"G": "grass", "x": "plain"}) into a Legend. Entries are applied on top
// of the default legend, so '.' and '+' keep working unless overridden.
func LegendFromConfig(raw map[string]string) (Legend, error) {
	legend := DefaultLegend()
	for key, value := range raw {
		runes := []rune(key)
		if len(runes) != 1 {
			return nil, fmt.Errorf("legend key %q must be a single character", key)
		}
		switch strings.ToLower(value) {
		case "target", "grass":
			legend[runes[0]] = Target
		case "plain", "cut":
			legend[runes[0]] = Plain
		default:
			return nil, fmt.Errorf("legend[%q] must be 'target' or 'plain', got %q", key, value)
		}
	}
	return legend, nil
}

// Parse builds a grid from layout rows using the given legend
func Parse(layout []string, legend Legend) (*Grid, error) {
	if legend == nil {
		legend = DefaultLegend()
	}
	if len(layout) == 0 {
		return nil, ErrEmptyGrid
	}

	cells := make([][]Cell, len(layout))
	for r, row := range layout {
		runes := []rune(row)
		cells[r] = make([]Cell, len(runes))
		for c, ch := range runes {
			cell, ok := legend[ch]
			if !ok {
				return nil, fmt.Errorf("invalid character '%c' at row %d, col %d", ch, r, c)
			}
			cells[r][c] = cell
		}
	}

	return New(cells)
}

// Layout renders the grid back into strings with '+' for targets and '.' for plain cells
func (g *Grid) Layout() []string {
	lines := make([]string, 0, g.rows)
	for r := 0; r < g.rows; r++ {
		var row strings.Builder
		for c := 0; c < g.cols; c++ {
			if g.cells[r*g.cols+c] == Target {
				row.WriteByte('+')
			} else {
				row.WriteByte('.')
			}
		}
		lines = append(lines, row.String())
	}
	return lines
}
