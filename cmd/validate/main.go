// Command validate checks yard configuration files. For each JSON or YAML
// file it checks:
//   - Decoding and required fields
//   - Grid shape, size limits and legend characters
//   - Strategy name and max_expansions
//   - Dead ends that rule out routes without revisits, which is an error
//     unless the yard selects the state strategy
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/lawnmower/mower/config"
	"github.com/wricardo/lawnmower/mower/route"
	"github.com/wricardo/lawnmower/mower/search"
)

// ValidationResult captures the outcome of validating a single file.
// Notes holds informational lines for valid files.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Notes  []string
}

// validateYard loads and validates a single yard file
func validateYard(path string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(path),
		Valid: true,
	}

	yard, err := config.ReadFile(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	g, err := yard.Grid()
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	// validation already accepted the name
	strategy, _ := search.ParseStrategy(yard.Strategy)

	a := route.Analyze(g)
	if a.NeedsRevisits() && strategy != search.StrategyState {
		result.Valid = false
		cells := make([]string, 0, len(a.DeadEnds))
		for _, p := range a.DeadEnds {
			cells = append(cells, p.String())
		}
		result.Errors = append(result.Errors,
			fmt.Sprintf("Dead ends at %s need revisits; set strategy: state", strings.Join(cells, " ")))
	}

	if !result.Valid {
		return result
	}

	result.Notes = append(result.Notes,
		fmt.Sprintf("Name: %s", yard.Name),
		fmt.Sprintf("Grid: %dx%d", a.Rows, a.Cols),
		fmt.Sprintf("Targets: %d", a.Targets),
		fmt.Sprintf("Strategy: %s", strategy),
		fmt.Sprintf("Route lower bound: %d steps", a.LowerBound),
	)
	return result
}

// yardFiles lists yard files in dir, sorted by name
func yardFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !config.IsYardFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// report prints results and returns whether every file was valid
func report(w io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)
		if result.Valid {
			fmt.Fprintln(w, "VALID")
			for _, note := range result.Notes {
				fmt.Fprintln(w, "  "+note)
			}
			continue
		}

		allValid = false
		fmt.Fprintln(w, "INVALID")
		for _, err := range result.Errors {
			fmt.Fprintln(w, "  - "+err)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "All yards are valid")
	} else {
		fmt.Fprintln(w, "Some yards have errors")
	}
	return allValid
}

var errInvalid = errors.New("validation failed")

func command() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate yard configuration files",
		ArgsUsage: "[file...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory to scan when no files are given", Sources: cli.EnvVars("CONFIG_DIR")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				var err error
				files, err = yardFiles(cmd.String("config-dir"))
				if err != nil {
					return fmt.Errorf("error finding yard files: %w", err)
				}
			}
			if len(files) == 0 {
				return fmt.Errorf("no yard files found")
			}

			results := make([]ValidationResult, 0, len(files))
			for _, file := range files {
				results = append(results, validateYard(file))
			}

			if !report(cmd.Root().Writer, results) {
				return errInvalid
			}
			return nil
		},
	}
}

func main() {
	if err := command().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
