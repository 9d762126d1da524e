package stores

import (
	"context"
	"time"

	"github.com/ShivenA99/GamED-AI-sub004/pkg/engine"
)

// Recorder adapts a Store to the engine's RunRecorder interface.
type Recorder struct {
	store Store
}

// NewRecorder creates a Recorder backed by the given store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// RunStarted inserts the initial run row.
func (r *Recorder) RunStarted(ctx context.Context, runID, title string) error {
	now := time.Now()
	return r.store.CreateRun(ctx, &Run{
		ID:        runID,
		Title:     title,
		Status:    RunStatusRunning,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// PhaseEntered appends a phase transition event.
func (r *Recorder) PhaseEntered(ctx context.Context, runID string, phase engine.Phase) error {
	return r.store.AppendPhaseEvent(ctx, &PhaseEvent{
		RunID:     runID,
		Phase:     string(phase),
		EnteredAt: time.Now(),
	})
}

// ResultRecorded appends one worker attempt.
func (r *Recorder) ResultRecorded(ctx context.Context, runID string, round int, result engine.WorkerResult) error {
	var errMsg *string
	if result.Error != "" {
		msg := result.Error
		errMsg = &msg
	}
	return r.store.AppendUnitResult(ctx, &UnitResult{
		RunID:      runID,
		UnitKey:    string(result.Key),
		Round:      round,
		Status:     string(result.Status),
		Error:      errMsg,
		DurationMs: result.DurationMs,
		CreatedAt:  time.Now(),
	})
}

// RunFinished records the run's terminal status and summary.
func (r *Recorder) RunFinished(ctx context.Context, runID, status string, degraded bool, summary engine.RunSummary) error {
	return r.store.FinishRun(ctx, runID, RunStatus(status), degraded,
		summary.TotalSubUnits, summary.Succeeded, summary.Failed,
		summary.RetryRounds, summary.Duration.Milliseconds())
}
