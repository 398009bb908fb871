package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/lawnmower/logger"
	"github.com/wricardo/lawnmower/mower/grid"
	"github.com/wricardo/lawnmower/mower/route"
	"github.com/wricardo/lawnmower/mower/search"
)

const (
	defaultStepLimit = 20
	maxStepLimit     = 100
)

// plannerServiceImpl implements the PlannerService interface
type plannerServiceImpl struct {
	runs          RunStore
	configs       ConfigManager
	notifier      Notifier
	progressEvery int

	mu     sync.Mutex
	active map[string]*activeRun
}

// activeRun tracks a search goroutine
type activeRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures the planner service
type Option func(*plannerServiceImpl)

// WithNotifier sends run events to n
func WithNotifier(n Notifier) Option {
	return func(s *plannerServiceImpl) { s.notifier = n }
}

// WithProgressEvery sets how many expansions pass between progress events
func WithProgressEvery(n int) Option {
	return func(s *plannerServiceImpl) { s.progressEvery = n }
}

// NewPlannerService creates a new planner service instance
func NewPlannerService(runs RunStore, configs ConfigManager, opts ...Option) PlannerService {
	s := &plannerServiceImpl{
		runs:          runs,
		configs:       configs,
		progressEvery: search.DefaultProgressEvery,
		active:        make(map[string]*activeRun),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *plannerServiceImpl) log() *logrus.Entry {
	return logger.Component("planner")
}

// CreateRun validates the request, stores a pending run and starts the
// search in the background. With req.Wait set it returns the finished run.
func (s *plannerServiceImpl) CreateRun(ctx context.Context, req RunRequest) (*RunInfo, error) {
	yard, yardID, err := s.resolveYard(req.YardID, req.Yard, req.Layout)
	if err != nil {
		return nil, err
	}

	strategyName := req.Strategy
	if strategyName == "" {
		strategyName = yard.Strategy
	}
	strategy, err := search.ParseStrategy(strategyName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	maxExpansions := req.MaxExpansions
	if maxExpansions == 0 {
		maxExpansions = yard.MaxExpansions
	}
	if maxExpansions < 0 {
		return nil, fmt.Errorf("%w: max_expansions must be non-negative", ErrInvalidRequest)
	}

	g, err := yard.Grid()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	now := time.Now()
	run, err := s.runs.Create(&Run{
		YardID:         yardID,
		Yard:           yard,
		Strategy:       strategy,
		MaxExpansions:  maxExpansions,
		Status:         StatusPending,
		CreatedAt:      now,
		LastAccessedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	ar := &activeRun{cancel: cancel, done: make(chan struct{})}
	s.mu.Lock()
	s.active[run.ID] = ar
	s.mu.Unlock()

	s.log().WithFields(logrus.Fields{
		"run_id":   run.ID,
		"yard":     yard.Name,
		"rows":     g.Rows(),
		"cols":     g.Cols(),
		"targets":  g.TargetCount(),
		"strategy": strategy,
	}).Info("run created")

	go s.execute(runCtx, run.ID, g, ar)

	if req.Wait {
		return s.Wait(ctx, run.ID)
	}
	return s.toRunInfo(run), nil
}

// execute runs the search for one run and records the outcome
func (s *plannerServiceImpl) execute(ctx context.Context, runID string, g *grid.Grid, ar *activeRun) {
	defer func() {
		s.mu.Lock()
		delete(s.active, runID)
		s.mu.Unlock()
		ar.cancel()
		close(ar.done)
	}()

	started := time.Now()
	run, err := s.runs.Update(runID, func(r *Run) {
		r.Status = StatusRunning
		r.StartedAt = started
	})
	if err != nil {
		s.log().WithError(err).WithField("run_id", runID).Warn("run disappeared before start")
		return
	}
	s.notify(runID, EventRunStarted, s.toRunInfo(run))

	options := []search.Option{
		search.WithStrategy(run.Strategy),
		search.WithMaxExpansions(run.MaxExpansions),
		search.WithProgressEvery(s.progressEvery),
		search.WithObserver(func(p search.Progress) {
			if _, err := s.runs.Update(runID, func(r *Run) { r.Progress = &p }); err != nil {
				s.log().WithError(err).WithField("run_id", runID).Debug("progress update failed")
			}
			s.notify(runID, EventRunProgress, p)
		}),
	}

	var result search.Result
	if err = ctx.Err(); err == nil {
		result, err = search.Search(ctx, g, options...)
	}

	status, message := StatusDone, ""
	switch {
	case err == nil:
	case errors.Is(err, search.ErrNoRoute):
		// the search finished; the yard has no route of this kind
		message = err.Error()
	case errors.Is(err, context.Canceled):
		status, message = StatusCancelled, "run cancelled"
	default:
		status, message = StatusFailed, err.Error()
	}

	finished := time.Now()
	run, err = s.runs.Update(runID, func(r *Run) {
		r.Status = status
		r.Error = message
		r.FinishedAt = finished
		if status != StatusCancelled || result.Path != nil {
			res := result
			r.Result = &res
		}
	})
	if err != nil {
		s.log().WithError(err).WithField("run_id", runID).Warn("failed to record run result")
		return
	}

	s.log().WithFields(logrus.Fields{
		"run_id":   runID,
		"status":   status,
		"found":    result.Found,
		"steps":    result.Steps,
		"expanded": result.Expanded,
		"duration": finished.Sub(started).String(),
	}).Info("run finished")

	s.notify(runID, EventRunFinished, s.toRunInfo(run))
}

func (s *plannerServiceImpl) notify(runID, event string, data interface{}) {
	if s.notifier != nil {
		s.notifier.BroadcastEvent(runID, event, data)
	}
}

// resolveYard picks the yard for a request: inline config, then yard ID,
// then a bare layout, then the default yard.
func (s *plannerServiceImpl) resolveYard(yardID string, inline *grid.YardConfig, layout []string) (*grid.YardConfig, string, error) {
	var yard grid.YardConfig
	switch {
	case inline != nil:
		yard = *inline
		if yard.Name == "" {
			yard.Name = "inline"
		}
	case yardID != "":
		loaded, err := s.configs.LoadConfig(yardID)
		if err != nil {
			if errors.Is(err, ErrYardNotFound) {
				available, listErr := s.configs.ListConfigs()
				if listErr == nil && len(available) > 0 {
					ids := make([]string, 0, len(available))
					for _, info := range available {
						ids = append(ids, info.YardID)
					}
					return nil, "", fmt.Errorf("%w: '%s'. Available yards: %v", ErrYardNotFound, yardID, ids)
				}
			}
			return nil, "", fmt.Errorf("failed to load yard %s: %w", yardID, err)
		}
		yard = *loaded
	case len(layout) > 0:
		yard = grid.YardConfig{Name: "inline", Layout: layout}
	default:
		def := s.configs.GetDefault()
		if def == nil {
			return nil, "", fmt.Errorf("%w: no yard given and no default yard", ErrInvalidRequest)
		}
		yard = *def
	}

	if err := grid.ValidateYardConfig(&yard); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return &yard, yardID, nil
}

// GetRun retrieves run information
func (s *plannerServiceImpl) GetRun(ctx context.Context, runID string) (*RunInfo, error) {
	run, err := s.runs.Touch(runID)
	if err != nil {
		return nil, err
	}
	return s.toRunInfo(run), nil
}

// ListRuns returns all runs, newest first
func (s *plannerServiceImpl) ListRuns(ctx context.Context) ([]*RunInfo, error) {
	runs := s.runs.List()
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	result := make([]*RunInfo, 0, len(runs))
	for _, run := range runs {
		result = append(result, s.toRunInfo(run))
	}
	return result, nil
}

// DeleteRun stops the run if it is still searching and removes it
func (s *plannerServiceImpl) DeleteRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	ar, ok := s.active[runID]
	s.mu.Unlock()
	if ok {
		ar.cancel()
		select {
		case <-ar.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return s.runs.Delete(runID)
}

// CancelRun stops a running search and returns the cancelled run
func (s *plannerServiceImpl) CancelRun(ctx context.Context, runID string) (*RunInfo, error) {
	s.mu.Lock()
	ar, ok := s.active[runID]
	s.mu.Unlock()

	if !ok {
		run, err := s.runs.Get(runID)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: status is %s", ErrRunFinished, run.Status)
	}

	ar.cancel()
	return s.Wait(ctx, runID)
}

// Wait blocks until the run finishes or ctx is done
func (s *plannerServiceImpl) Wait(ctx context.Context, runID string) (*RunInfo, error) {
	s.mu.Lock()
	ar, ok := s.active[runID]
	s.mu.Unlock()

	if ok {
		select {
		case <-ar.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.GetRun(ctx, runID)
}

// GetRunSteps returns the route of a finished run, paginated
func (s *plannerServiceImpl) GetRunSteps(ctx context.Context, runID string, opts StepOptions) (*StepsResponse, error) {
	run, err := s.runs.Get(runID)
	if err != nil {
		return nil, err
	}
	if run.Result == nil {
		return nil, fmt.Errorf("%w: status is %s", ErrRunNotFinished, run.Status)
	}

	g, err := run.Yard.Grid()
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild yard: %w", err)
	}
	steps := buildSteps(g, run.Result.Path)
	total := len(steps)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultStepLimit
	}
	if opts.Limit > maxStepLimit {
		opts.Limit = maxStepLimit
	}
	if opts.Order != "desc" {
		opts.Order = "asc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	page := []StepInfo{}
	if start < total {
		if opts.Order == "desc" {
			for i := total - 1 - start; i >= total-end; i-- {
				page = append(page, steps[i])
			}
		} else {
			page = append(page, steps[start:end]...)
		}
	}

	return &StepsResponse{
		RunID:       run.ID,
		Steps:       page,
		TotalSteps:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

func buildSteps(g *grid.Grid, path []grid.Position) []StepInfo {
	steps := make([]StepInfo, 0, len(path))
	seen := make(map[grid.Position]bool)
	collected := 0
	for i, p := range path {
		step := StepInfo{Idx: i, Position: p, Target: g.IsTarget(p)}
		if i > 0 {
			if d, ok := grid.DirectionBetween(path[i-1], p); ok {
				step.Dir = d.Name
			}
		}
		if step.Target && !seen[p] {
			step.FirstVisit = true
			collected++
		}
		seen[p] = true
		step.Collected = collected
		steps = append(steps, step)
	}
	return steps
}

// VerifyRoute checks a route against a yard
func (s *plannerServiceImpl) VerifyRoute(ctx context.Context, req VerifyRequest) (*route.Report, error) {
	yard, _, err := s.resolveYard(req.YardID, req.Yard, req.Layout)
	if err != nil {
		return nil, err
	}
	g, err := yard.Grid()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	path := req.Path
	if len(path) == 0 && len(req.Moves) > 0 {
		path, err = route.Follow(req.Moves)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: path or moves required", ErrInvalidRequest)
	}

	report := route.Verify(g, path)
	return &report, nil
}

// ListYards returns available yard configurations
func (s *plannerServiceImpl) ListYards(ctx context.Context) ([]*YardInfo, error) {
	return s.configs.ListConfigs()
}

// LoadYard loads a specific yard configuration
func (s *plannerServiceImpl) LoadYard(ctx context.Context, name string) (*grid.YardConfig, error) {
	return s.configs.LoadConfig(name)
}

// SaveYard saves a yard configuration to disk
func (s *plannerServiceImpl) SaveYard(ctx context.Context, name string, yard *grid.YardConfig) error {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: invalid yard id %q", ErrInvalidRequest, name)
	}
	if err := grid.ValidateYardConfig(yard); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return s.configs.SaveConfig(name, yard)
}

// toRunInfo builds the API view of a run
func (s *plannerServiceImpl) toRunInfo(run *Run) *RunInfo {
	info := &RunInfo{
		ID:             run.ID,
		YardID:         run.YardID,
		Strategy:       run.Strategy,
		MaxExpansions:  run.MaxExpansions,
		Status:         run.Status,
		Progress:       run.Progress,
		Error:          run.Error,
		CreatedAt:      run.CreatedAt,
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
		LastAccessedAt: run.LastAccessedAt,
	}
	if !run.StartedAt.IsZero() && !run.FinishedAt.IsZero() {
		info.DurationMS = run.FinishedAt.Sub(run.StartedAt).Milliseconds()
	}

	var g *grid.Grid
	if run.Yard != nil {
		info.YardName = run.Yard.Name
		if built, err := run.Yard.Grid(); err == nil {
			g = built
			info.Rows, info.Cols, info.Targets = g.Rows(), g.Cols(), g.TargetCount()
		}
	}

	if run.Result == nil {
		return info
	}
	info.Found = run.Result.Found
	info.Steps = run.Result.Steps
	info.Path = run.Result.Path
	info.Stats = &SearchStats{
		Expanded:    run.Result.Expanded,
		Pushed:      run.Result.Pushed,
		MaxFrontier: run.Result.MaxFrontier,
	}
	if moves, err := route.Directions(run.Result.Path); err == nil {
		info.Directions = moves
	}
	if g != nil {
		info.Overlay = route.Overlay(g, run.Result.Path)
	}
	return info
}
