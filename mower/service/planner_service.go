package service

import (
	"context"
	"time"

	"github.com/wricardo/lawnmower/mower/grid"
	"github.com/wricardo/lawnmower/mower/route"
	"github.com/wricardo/lawnmower/mower/search"
)

// PlannerService defines all route planning operations
type PlannerService interface {
	// Runs
	CreateRun(ctx context.Context, req RunRequest) (*RunInfo, error)
	GetRun(ctx context.Context, runID string) (*RunInfo, error)
	ListRuns(ctx context.Context) ([]*RunInfo, error)
	DeleteRun(ctx context.Context, runID string) error
	CancelRun(ctx context.Context, runID string) (*RunInfo, error)
	Wait(ctx context.Context, runID string) (*RunInfo, error)
	GetRunSteps(ctx context.Context, runID string, opts StepOptions) (*StepsResponse, error)

	// Routes
	VerifyRoute(ctx context.Context, req VerifyRequest) (*route.Report, error)

	// Yards
	ListYards(ctx context.Context) ([]*YardInfo, error)
	LoadYard(ctx context.Context, name string) (*grid.YardConfig, error)
	SaveYard(ctx context.Context, name string, yard *grid.YardConfig) error
}

// RunStore defines run storage operations
type RunStore interface {
	Create(run *Run) (*Run, error)
	Get(id string) (*Run, error)
	List() []*Run
	Update(id string, fn func(*Run)) (*Run, error)
	Touch(id string) (*Run, error)
	Delete(id string) error
}

// ConfigManager handles yard configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*grid.YardConfig, error)
	ListConfigs() ([]*YardInfo, error)
	GetDefault() *grid.YardConfig
	SaveConfig(name string, config *grid.YardConfig) error
}

// Notifier receives run lifecycle events
type Notifier interface {
	BroadcastEvent(runID string, event string, data interface{})
}

// RunStatus is the lifecycle state of a run
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusDone      RunStatus = "done"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

// Finished reports whether the run reached a terminal state
func (s RunStatus) Finished() bool {
	return s == StatusDone || s == StatusFailed || s == StatusCancelled
}

// Run is one search invocation over a yard
type Run struct {
	ID             string           `json:"id"`
	YardID         string           `json:"yard_id,omitempty"`
	Yard           *grid.YardConfig `json:"yard"`
	Strategy       search.Strategy  `json:"strategy"`
	MaxExpansions  int              `json:"max_expansions,omitempty"`
	Status         RunStatus        `json:"status"`
	Result         *search.Result   `json:"result,omitempty"`
	Progress       *search.Progress `json:"progress,omitempty"`
	Error          string           `json:"error,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	StartedAt      time.Time        `json:"started_at,omitempty"`
	FinishedAt     time.Time        `json:"finished_at,omitempty"`
	LastAccessedAt time.Time        `json:"last_accessed_at"`
}

// Clone returns a copy that shares no mutable state with r
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	out := *r
	if r.Result != nil {
		result := *r.Result
		result.Path = append([]grid.Position(nil), r.Result.Path...)
		out.Result = &result
	}
	if r.Progress != nil {
		progress := *r.Progress
		out.Progress = &progress
	}
	return &out
}
