package route

import (
	"reflect"
	"testing"

	"github.com/wricardo/lawnmower/mower/grid"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name       string
		layout     []string
		lowerBound int
		farthest   grid.Position
		deadEnds   []grid.Position
	}{
		{
			name:       "no targets",
			layout:     []string{"...", "..."},
			lowerBound: 0,
		},
		{
			name:       "origin only target",
			layout:     []string{"+."},
			lowerBound: 0,
		},
		{
			name:       "neighbor of origin",
			layout:     []string{".+"},
			lowerBound: 2,
			farthest:   grid.Position{Row: 0, Col: 1},
		},
		{
			name:       "far corner",
			layout:     []string{"...", "...", "..+"},
			lowerBound: 8,
			farthest:   grid.Position{Row: 2, Col: 2},
		},
		{
			name:       "many close targets",
			layout:     []string{".++", "+++"},
			lowerBound: 6,
			farthest:   grid.Position{Row: 1, Col: 2},
		},
		{
			name:       "odd cell count rounds up",
			layout:     []string{".++", "++."},
			lowerBound: 6,
			farthest:   grid.Position{Row: 0, Col: 2},
		},
		{
			name:       "corridor",
			layout:     []string{"..+"},
			lowerBound: 4,
			farthest:   grid.Position{Row: 0, Col: 2},
			deadEnds:   []grid.Position{grid.Origin, {Row: 0, Col: 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := grid.Parse(tt.layout, nil)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}

			a := Analyze(g)
			if a.LowerBound != tt.lowerBound {
				t.Errorf("LowerBound = %d, expected %d", a.LowerBound, tt.lowerBound)
			}
			if a.Farthest != tt.farthest {
				t.Errorf("Farthest = %s, expected %s", a.Farthest, tt.farthest)
			}
			if !reflect.DeepEqual(a.DeadEnds, tt.deadEnds) {
				t.Errorf("DeadEnds = %v, expected %v", a.DeadEnds, tt.deadEnds)
			}
			if a.NeedsRevisits() != (len(tt.deadEnds) > 0) {
				t.Errorf("NeedsRevisits = %v", a.NeedsRevisits())
			}
		})
	}
}
