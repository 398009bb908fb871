package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/lawnmower/mower/service"
)

// solveCommand plans one yard in-process and prints the route
func solveCommand() *cli.Command {
	return &cli.Command{
		Name:      "solve",
		Usage:     "Plan a route for one yard and print it",
		ArgsUsage: "[yard-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "layout-file", Usage: "Read the layout from a text file, one row per line (- for stdin)"},
			&cli.StringFlag{Name: "strategy", Usage: "Search strategy: candidate, shared or state"},
			&cli.IntFlag{Name: "max-expansions", Usage: "Stop after this many expansions (0 = unlimited)"},
			&cli.DurationFlag{Name: "timeout", Value: time.Minute, Usage: "Give up after this long"},
			&cli.BoolFlag{Name: "json", Usage: "Print the run as JSON"},
		},
		Action: runSolve,
	}
}

func runSolve(ctx context.Context, cmd *cli.Command) error {
	req := service.RunRequest{
		YardID:        cmd.Args().First(),
		Strategy:      cmd.String("strategy"),
		MaxExpansions: cmd.Int("max-expansions"),
		Wait:          true,
	}

	if path := cmd.String("layout-file"); path != "" {
		layout, err := readLayoutFile(path)
		if err != nil {
			return err
		}
		req.Layout = layout
		req.YardID = ""
	}

	svc, err := initializeServices(cmd.String("config-dir"), "", nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	run, err := svc.planner.CreateRun(ctx, req)
	if errors.Is(err, context.DeadlineExceeded) {
		// the search outlives the wait; stop it before reporting
		cancelRuns(context.Background(), svc)
		return fmt.Errorf("search did not finish within %s", cmd.Duration("timeout"))
	}
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	if cmd.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}
	printRun(out, run)

	if run.Status != service.StatusDone {
		return fmt.Errorf("run %s: %s", run.Status, run.Error)
	}
	return nil
}

// cancelRuns stops every unfinished run and returns how many were stopped
func cancelRuns(ctx context.Context, svc *services) int {
	cancelled := 0
	for _, r := range svc.runs.List() {
		if r.Status.Finished() {
			continue
		}
		if _, err := svc.planner.CancelRun(ctx, r.ID); err != nil {
			if !errors.Is(err, service.ErrRunFinished) {
				log.WithError(err).WithField("run_id", r.ID).Warn("failed to cancel run")
			}
			continue
		}
		cancelled++
	}
	return cancelled
}

// readLayoutFile reads one row per line, skipping blank lines. "-" reads stdin.
func readLayoutFile(path string) ([]string, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open layout: %w", err)
		}
		defer f.Close()
		r = f
	}

	var layout []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		layout = append(layout, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read layout: %w", err)
	}
	if len(layout) == 0 {
		return nil, fmt.Errorf("layout file %s is empty", path)
	}
	return layout, nil
}

// printRun writes a human readable summary of a finished run
func printRun(w io.Writer, run *service.RunInfo) {
	fmt.Fprintf(w, "Yard: %s (%dx%d, %d targets)\n", run.YardName, run.Rows, run.Cols, run.Targets)
	fmt.Fprintf(w, "Strategy: %s\n", run.Strategy)
	if run.Stats != nil {
		fmt.Fprintf(w, "Expanded: %d (pushed %d, max frontier %d)\n", run.Stats.Expanded, run.Stats.Pushed, run.Stats.MaxFrontier)
	}

	if !run.Found {
		fmt.Fprintln(w, "No route found.")
		if run.Error != "" {
			fmt.Fprintf(w, "Reason: %s\n", run.Error)
		}
		return
	}

	fmt.Fprintf(w, "Steps: %d\n\n", run.Steps)
	for _, line := range run.Overlay {
		fmt.Fprintln(w, line)
	}
	if len(run.Directions) > 0 {
		fmt.Fprintf(w, "\nMoves: %s\n", strings.Join(run.Directions, " "))
	}
}
