package stores

import (
	"context"
	"time"
)

// RunStatus represents the terminal status of a recorded run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusDegraded  RunStatus = "degraded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run represents one recorded pipeline run.
type Run struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Status        RunStatus  `json:"status"`
	Degraded      bool       `json:"degraded"`
	TotalSubUnits int        `json:"total_sub_units"`
	Succeeded     int        `json:"succeeded"`
	Failed        int        `json:"failed"`
	RetryRounds   int        `json:"retry_rounds"`
	DurationMs    int64      `json:"duration_ms"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// PhaseEvent is an append-only record of a phase transition.
type PhaseEvent struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Phase     string    `json:"phase"`
	EnteredAt time.Time `json:"entered_at"`
}

// UnitResult is one recorded worker attempt. Multiple rows may exist per
// unit key across retry rounds; the highest round is the final attempt.
type UnitResult struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	UnitKey    string    `json:"unit_key"`
	Round      int       `json:"round"`
	Status     string    `json:"status"`
	Error      *string   `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store defines the interface for the run-history persistence layer.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Run operations
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	FinishRun(ctx context.Context, id string, status RunStatus, degraded bool, totalSubUnits, succeeded, failed, retryRounds int, durationMs int64) error
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error

	// Phase operations
	AppendPhaseEvent(ctx context.Context, event *PhaseEvent) error
	ListPhaseEvents(ctx context.Context, runID string) ([]*PhaseEvent, error)

	// Unit result operations
	AppendUnitResult(ctx context.Context, result *UnitResult) error
	ListUnitResultsByRun(ctx context.Context, runID string) ([]*UnitResult, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
