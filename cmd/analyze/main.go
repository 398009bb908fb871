// Command analyze prints quick, human-readable facts about yard files: size,
// target count, the farthest target, a lower bound on route length, and dead
// ends that force revisits. With --solve it also runs the search and compares
// the route it finds against the bound.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/lawnmower/mower/config"
	"github.com/wricardo/lawnmower/mower/grid"
	"github.com/wricardo/lawnmower/mower/route"
	"github.com/wricardo/lawnmower/mower/search"
)

// SolveOptions bounds the optional search
type SolveOptions struct {
	Enabled       bool
	Strategy      string
	MaxExpansions int
	Timeout       time.Duration
}

func main() {
	if err := command().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func command() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Summarize yard files and route lower bounds",
		ArgsUsage: "[file...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory to scan when no files are given", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.BoolFlag{Name: "solve", Usage: "Also run the search and compare against the lower bound"},
			&cli.StringFlag{Name: "strategy", Usage: "Override the yard's strategy when solving"},
			&cli.IntFlag{Name: "max-expansions", Value: 200000, Usage: "Expansion cap per yard when solving (0 = unlimited)"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "Time limit per yard when solving"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				var err error
				files, err = yardFiles(cmd.String("config-dir"))
				if err != nil {
					return err
				}
			}

			opts := SolveOptions{
				Enabled:       cmd.Bool("solve"),
				Strategy:      cmd.String("strategy"),
				MaxExpansions: cmd.Int("max-expansions"),
				Timeout:       cmd.Duration("timeout"),
			}
			out := cmd.Root().Writer
			for _, file := range files {
				fmt.Fprintf(out, "\n=== Analyzing %s ===\n", file)
				analyzeFile(ctx, out, file, opts)
			}
			return nil
		},
	}
}

// yardFiles lists the yard files in dir
func yardFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && config.IsYardFile(entry.Name()) {
			files = append(files, dir+string(os.PathSeparator)+entry.Name())
		}
	}
	return files, nil
}

func analyzeFile(ctx context.Context, w io.Writer, path string, opts SolveOptions) {
	yard, err := config.ReadFile(path)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	g, err := yard.Grid()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(w, "Name: %s\n", yard.Name)
	a := route.Analyze(g)
	printAnalysis(w, a)

	if !opts.Enabled {
		return
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = yard.Strategy
	}
	solve(ctx, w, g, a, strategy, opts)
}

func printAnalysis(w io.Writer, a route.Analysis) {
	fmt.Fprintf(w, "Grid: %d x %d\n", a.Rows, a.Cols)
	fmt.Fprintf(w, "Targets: %d\n", a.Targets)
	if a.LowerBound == 0 {
		fmt.Fprintln(w, "Nothing to collect: the route is the origin alone")
		return
	}
	fmt.Fprintf(w, "Farthest target: %s (%d steps away)\n", a.Farthest, a.FarthestDistance)
	fmt.Fprintf(w, "Route lower bound: %d steps\n", a.LowerBound)

	if !a.NeedsRevisits() {
		fmt.Fprintln(w, "No dead ends: routes without revisits are possible")
		return
	}
	cells := make([]string, 0, len(a.DeadEnds))
	for _, p := range a.DeadEnds {
		cells = append(cells, p.String())
	}
	fmt.Fprintf(w, "WARNING: dead ends at %s\n", strings.Join(cells, " "))
	fmt.Fprintln(w, "   Only the state strategy can collect this yard")
}

func solve(ctx context.Context, w io.Writer, g *grid.Grid, a route.Analysis, strategyName string, opts SolveOptions) {
	strategy, err := search.ParseStrategy(strategyName)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := search.Search(ctx, g,
		search.WithStrategy(strategy),
		search.WithMaxExpansions(opts.MaxExpansions),
	)
	elapsed := time.Since(start).Round(time.Millisecond)

	switch {
	case err == nil:
		fmt.Fprintf(w, "Search (%s): %d steps, %d expanded in %s\n", strategy, result.Steps, result.Expanded, elapsed)
		if result.Steps == a.LowerBound {
			fmt.Fprintln(w, "Route meets the lower bound")
		} else {
			fmt.Fprintf(w, "Route is %d steps above the lower bound\n", result.Steps-a.LowerBound)
		}
	case errors.Is(err, search.ErrNoRoute):
		fmt.Fprintf(w, "Search (%s): no route after %d expansions\n", strategy, result.Expanded)
	case errors.Is(err, search.ErrExpansionLimit):
		fmt.Fprintf(w, "Search (%s): gave up after %d expansions\n", strategy, result.Expanded)
	case errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintf(w, "Search (%s): timed out after %s\n", strategy, opts.Timeout)
	default:
		fmt.Fprintf(w, "Search (%s): %v\n", strategy, err)
	}
}
