package search

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/wricardo/lawnmower/mower/grid"
)

func mustParse(t *testing.T, layout ...string) *grid.Grid {
	t.Helper()
	g, err := grid.Parse(layout, nil)
	if err != nil {
		t.Fatalf("Failed to parse layout %v: %v", layout, err)
	}
	return g
}

// assertCollectorRoute checks the route properties every successful search
// must satisfy.
func assertCollectorRoute(t *testing.T, g *grid.Grid, path []grid.Position) {
	t.Helper()
	if len(path) == 0 {
		t.Fatal("Route is empty")
	}
	if path[0] != grid.Origin {
		t.Errorf("Route starts at %v, expected origin", path[0])
	}
	if path[len(path)-1] != grid.Origin {
		t.Errorf("Route ends at %v, expected origin", path[len(path)-1])
	}

	seen := make(map[grid.Position]bool)
	for i, p := range path {
		if !g.InBounds(p) {
			t.Errorf("Step %d at %v is out of bounds", i, p)
		}
		if i > 0 && grid.Manhattan(path[i-1], p) != 1 {
			t.Errorf("Steps %d and %d (%v -> %v) are not adjacent", i-1, i, path[i-1], p)
		}
		seen[p] = true
	}
	for _, target := range g.Targets() {
		if !seen[target] {
			t.Errorf("Target %v is not on the route", target)
		}
	}
}

func TestCollectorPathExamples(t *testing.T) {
	tests := []struct {
		name     string
		layout   []string
		expected []grid.Position
	}{
		{
			name:     "single plain cell",
			layout:   []string{"."},
			expected: []grid.Position{{Row: 0, Col: 0}},
		},
		{
			name:     "no targets",
			layout:   []string{"...", "..."},
			expected: []grid.Position{{Row: 0, Col: 0}},
		},
		{
			name:     "one target next to origin",
			layout:   []string{".+"},
			expected: []grid.Position{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 0}},
		},
		{
			name:     "dead end target falls back",
			layout:   []string{"..+"},
			expected: []grid.Position{{Row: 0, Col: 0}},
		},
		{
			name:     "dead end column falls back",
			layout:   []string{".", ".", "+"},
			expected: []grid.Position{{Row: 0, Col: 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustParse(t, tt.layout...)
			if got := CollectorPath(g); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("CollectorPath() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestSearchFindsLoops(t *testing.T) {
	tests := []struct {
		name   string
		layout []string
		steps  int
	}{
		{"2x2 far corner", []string{"..", ".+"}, 4},
		{"2x2 all targets", []string{"++", "++"}, 4},
		{"2x3 far corner", []string{"..+", "..."}, 6},
		{"3x3 center", []string{"...", ".+.", "..."}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustParse(t, tt.layout...)
			result, err := Search(context.Background(), g)
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			if !result.Found {
				t.Fatal("Expected a route to be found")
			}
			assertCollectorRoute(t, g, result.Path)
			if result.Steps != tt.steps {
				t.Errorf("Expected %d steps, got %d (%v)", tt.steps, result.Steps, result.Path)
			}
			if result.Steps != len(result.Path)-1 {
				t.Errorf("Steps %d does not match path length %d", result.Steps, len(result.Path))
			}
			if result.Targets != g.TargetCount() {
				t.Errorf("Expected %d targets, got %d", g.TargetCount(), result.Targets)
			}
		})
	}
}

func TestSearchNoRevisitsExceptOrigin(t *testing.T) {
	g := mustParse(t,
		".+..",
		"..+.",
		"+...",
	)
	result, err := Search(context.Background(), g)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	assertCollectorRoute(t, g, result.Path)

	seen := make(map[grid.Position]bool)
	for _, p := range result.Path[:len(result.Path)-1] {
		if seen[p] {
			t.Errorf("Cell %v visited twice in %v", p, result.Path)
		}
		seen[p] = true
	}
}

func TestSearchEmptyTargets(t *testing.T) {
	for _, strategy := range []Strategy{StrategyCandidate, StrategyShared, StrategyState} {
		t.Run(string(strategy), func(t *testing.T) {
			g := mustParse(t, "...", "...")
			result, err := Search(context.Background(), g, WithStrategy(strategy))
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			if !result.Found {
				t.Error("An empty target set should count as found")
			}
			if !reflect.DeepEqual(result.Path, []grid.Position{grid.Origin}) {
				t.Errorf("Expected [origin], got %v", result.Path)
			}
		})
	}
}

func TestSearchNoRoute(t *testing.T) {
	g := mustParse(t, "..+")
	result, err := Search(context.Background(), g)
	if !errors.Is(err, ErrNoRoute) {
		t.Fatalf("Expected ErrNoRoute, got %v", err)
	}
	if result.Found {
		t.Error("Result should not be marked found")
	}
	if !reflect.DeepEqual(result.Path, []grid.Position{grid.Origin}) {
		t.Errorf("Expected fallback [origin], got %v", result.Path)
	}
	if result.Expanded == 0 {
		t.Error("Expected the search to expand candidates before giving up")
	}
}

func TestSearchOriginTarget(t *testing.T) {
	g := mustParse(t, "+.")
	result, err := Search(context.Background(), g)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !result.Found || !reflect.DeepEqual(result.Path, []grid.Position{grid.Origin}) {
		t.Errorf("Expected [origin] found, got %v (found=%v)", result.Path, result.Found)
	}

	g = mustParse(t, "++")
	result, err = Search(context.Background(), g)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	expected := []grid.Position{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 0}}
	if !reflect.DeepEqual(result.Path, expected) {
		t.Errorf("Expected %v, got %v", expected, result.Path)
	}
}

func TestStateStrategy(t *testing.T) {
	t.Run("revisits dead end", func(t *testing.T) {
		g := mustParse(t, "..+")
		result, err := Search(context.Background(), g, WithStrategy(StrategyState))
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		expected := []grid.Position{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2}, {Row: 0, Col: 1}, {Row: 0, Col: 0}}
		if !reflect.DeepEqual(result.Path, expected) {
			t.Errorf("Expected %v, got %v", expected, result.Path)
		}
	})

	t.Run("shorter than loop", func(t *testing.T) {
		g := mustParse(t, "..+", "...")

		loop, err := Search(context.Background(), g)
		if err != nil {
			t.Fatalf("Candidate search failed: %v", err)
		}
		tour, err := Search(context.Background(), g, WithStrategy(StrategyState))
		if err != nil {
			t.Fatalf("State search failed: %v", err)
		}
		assertCollectorRoute(t, g, tour.Path)

		if loop.Steps != 6 {
			t.Errorf("Expected candidate loop of 6 steps, got %d", loop.Steps)
		}
		if tour.Steps != 4 {
			t.Errorf("Expected state tour of 4 steps, got %d", tour.Steps)
		}
	})

	t.Run("several targets", func(t *testing.T) {
		g := mustParse(t,
			"..+.",
			"+...",
			"...+",
		)
		result, err := Search(context.Background(), g, WithStrategy(StrategyState))
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		assertCollectorRoute(t, g, result.Path)
		if result.Strategy != StrategyState {
			t.Errorf("Expected strategy %q, got %q", StrategyState, result.Strategy)
		}
	})
}

func TestSharedStrategyMatchesReachability(t *testing.T) {
	layouts := [][]string{
		{".+"},
		{"..", ".+"},
		{".+.", "..+", "+.."},
		{"..+"},
	}

	for _, layout := range layouts {
		g := mustParse(t, layout...)
		candidate, candidateErr := Search(context.Background(), g)
		shared, sharedErr := Search(context.Background(), g, WithStrategy(StrategyShared))

		if candidate.Found != shared.Found {
			t.Errorf("Layout %v: candidate found=%v, shared found=%v", layout, candidate.Found, shared.Found)
		}
		if !errors.Is(sharedErr, candidateErr) && !(candidateErr == nil && sharedErr == nil) {
			t.Errorf("Layout %v: candidate err=%v, shared err=%v", layout, candidateErr, sharedErr)
		}
		if shared.Found {
			assertCollectorRoute(t, g, shared.Path)
		}
	}
}

func TestSearchExpansionLimit(t *testing.T) {
	g := mustParse(t, "+++", "+++", "+++")

	for _, strategy := range []Strategy{StrategyCandidate, StrategyState} {
		t.Run(string(strategy), func(t *testing.T) {
			result, err := Search(context.Background(), g,
				WithStrategy(strategy),
				WithMaxExpansions(1),
			)
			if !errors.Is(err, ErrExpansionLimit) {
				t.Fatalf("Expected ErrExpansionLimit, got %v", err)
			}
			if result.Expanded != 1 {
				t.Errorf("Expected 1 expansion, got %d", result.Expanded)
			}
			if !reflect.DeepEqual(result.Path, []grid.Position{grid.Origin}) {
				t.Errorf("Expected fallback path, got %v", result.Path)
			}
		})
	}
}

func TestSearchCancelled(t *testing.T) {
	g := mustParse(t,
		"++++++",
		"++++++",
		"++++++",
		"++++++",
		"++++++",
		"++++++",
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Search(ctx, g)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if result.Found {
		t.Error("Cancelled search should not report a route")
	}
}

func TestSearchObserver(t *testing.T) {
	g := mustParse(t, ".+.", "..+", "+..")

	var reports []Progress
	result, err := Search(context.Background(), g,
		WithObserver(func(p Progress) { reports = append(reports, p) }),
		WithProgressEvery(1),
	)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(reports) != result.Expanded {
		t.Errorf("Expected %d progress reports, got %d", result.Expanded, len(reports))
	}
	for i, p := range reports {
		if p.Expanded != i+1 {
			t.Errorf("Report %d has Expanded=%d", i, p.Expanded)
		}
		if p.Targets != 3 {
			t.Errorf("Report %d has Targets=%d, expected 3", i, p.Targets)
		}
	}
}

func TestSearchNilGrid(t *testing.T) {
	if _, err := Search(context.Background(), nil); !errors.Is(err, ErrNilGrid) {
		t.Errorf("Expected ErrNilGrid, got %v", err)
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		input    string
		expected Strategy
		wantErr  bool
	}{
		{"", StrategyCandidate, false},
		{"candidate", StrategyCandidate, false},
		{" Shared ", StrategyShared, false},
		{"STATE", StrategyState, false},
		{"greedy", "", true},
	}

	for _, tt := range tests {
		got, err := ParseStrategy(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStrategy(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseStrategy(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestSearchFrontierStats(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		small    []string
		large    []string
	}{
		{"candidate", StrategyCandidate, []string{"++", "++"}, []string{"++++", "++++", "++++", "++++"}},
		{"shared", StrategyShared, []string{"++", "++"}, []string{"++++", "++++", "++++", "++++"}},
		{"state", StrategyState, []string{"++", "++"}, []string{"+++", "+++", "+++"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stats [2]Result
			for i, layout := range [][]string{tt.small, tt.large} {
				g := mustParse(t, layout...)
				result, err := Search(context.Background(), g, WithStrategy(tt.strategy))
				if err != nil {
					t.Fatalf("Search(%v) failed: %v", layout, err)
				}
				if result.Pushed < result.Expanded {
					t.Errorf("%v: Pushed=%d is less than Expanded=%d", layout, result.Pushed, result.Expanded)
				}
				if result.MaxFrontier <= 0 || result.MaxFrontier > result.Pushed {
					t.Errorf("%v: MaxFrontier=%d out of range (Pushed=%d)", layout, result.MaxFrontier, result.Pushed)
				}
				stats[i] = result
			}

			if stats[1].Pushed <= stats[0].Pushed {
				t.Errorf("Expected Pushed to grow, got %d then %d", stats[0].Pushed, stats[1].Pushed)
			}
			if stats[1].MaxFrontier <= stats[0].MaxFrontier {
				t.Errorf("Expected MaxFrontier to grow, got %d then %d", stats[0].MaxFrontier, stats[1].MaxFrontier)
			}
		})
	}
}
