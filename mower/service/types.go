package service

import (
	"time"

	"github.com/wricardo/lawnmower/mower/grid"
	"github.com/wricardo/lawnmower/mower/search"
)

// RunRequest starts a run. The yard comes from YardID, an inline Yard, or a
// bare Layout, checked in that order after Yard. Empty everything selects
// the default yard.
type RunRequest struct {
	YardID        string           `json:"yard_id,omitempty"`
	Yard          *grid.YardConfig `json:"yard,omitempty"`
	Layout        []string         `json:"layout,omitempty"`
	Strategy      string           `json:"strategy,omitempty"`
	MaxExpansions int              `json:"max_expansions,omitempty"`
	Wait          bool             `json:"wait,omitempty"`
}

// RunInfo provides information about a run
type RunInfo struct {
	ID             string           `json:"id"`
	YardID         string           `json:"yard_id,omitempty"`
	YardName       string           `json:"yard_name"`
	Rows           int              `json:"rows"`
	Cols           int              `json:"cols"`
	Strategy       search.Strategy  `json:"strategy"`
	MaxExpansions  int              `json:"max_expansions,omitempty"`
	Status         RunStatus        `json:"status"`
	Found          bool             `json:"found"`
	Steps          int              `json:"steps"`
	Targets        int              `json:"targets"`
	Path           []grid.Position  `json:"path,omitempty"`
	Directions     []string         `json:"directions,omitempty"`
	Overlay        []string         `json:"overlay,omitempty"`
	Stats          *SearchStats     `json:"stats,omitempty"`
	Progress       *search.Progress `json:"progress,omitempty"`
	Error          string           `json:"error,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	StartedAt      time.Time        `json:"started_at,omitempty"`
	FinishedAt     time.Time        `json:"finished_at,omitempty"`
	LastAccessedAt time.Time        `json:"last_accessed_at"`
	DurationMS     int64            `json:"duration_ms,omitempty"`
}

// SearchStats summarizes the work a finished search did
type SearchStats struct {
	Expanded    int `json:"expanded"`
	Pushed      int `json:"pushed"`
	MaxFrontier int `json:"max_frontier"`
}

// StepOptions configures route step retrieval
type StepOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// StepInfo is one position of a route
type StepInfo struct {
	Idx        int           `json:"idx"`
	Position   grid.Position `json:"position"`
	Dir        string        `json:"dir,omitempty"` // move that reached Position
	Target     bool          `json:"target,omitempty"`
	FirstVisit bool          `json:"first_visit,omitempty"`
	Collected  int           `json:"collected"` // targets collected so far
}

// StepsResponse contains a paginated route
type StepsResponse struct {
	RunID       string     `json:"run_id"`
	Steps       []StepInfo `json:"steps"`
	TotalSteps  int        `json:"total_steps"`
	Page        int        `json:"page"`
	PageSize    int        `json:"page_size"`
	TotalPages  int        `json:"total_pages"`
	HasNext     bool       `json:"has_next"`
	HasPrevious bool       `json:"has_previous"`
}

// VerifyRequest checks a route against a yard. The route is given either as
// positions or as moves from the origin.
type VerifyRequest struct {
	YardID string           `json:"yard_id,omitempty"`
	Yard   *grid.YardConfig `json:"yard,omitempty"`
	Layout []string         `json:"layout,omitempty"`
	Path   []grid.Position  `json:"path,omitempty"`
	Moves  []string         `json:"moves,omitempty"`
}

// YardInfo provides information about a yard configuration
type YardInfo struct {
	Filename    string `json:"filename"`
	YardID      string `json:"yard_id"` // The identifier to use for run creation
	Name        string `json:"name"`    // Display name
	Description string `json:"description"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
	Targets     int    `json:"targets"`
	Strategy    string `json:"strategy,omitempty"`
}

// Event names sent to the Notifier
const (
	EventRunStarted  = "run_started"
	EventRunProgress = "run_progress"
	EventRunFinished = "run_finished"
)
