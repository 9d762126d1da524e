package engine

import (
	"encoding/json"
	"fmt"
)

// Phase represents a step of the pipeline's fixed phase order.
type Phase string

const (
	// PhaseGathering collects the upstream inputs for the run.
	PhaseGathering Phase = "gathering"

	// PhasePlanning compiles the concept into an execution plan.
	PhasePlanning Phase = "planning"

	// PhasePlanValidating validates the compiled plan.
	PhasePlanValidating Phase = "plan_validating"

	// PhaseContentDispatching fans out one worker per planned unit.
	PhaseContentDispatching Phase = "content_dispatching"

	// PhaseContentMerging deduplicates accumulated worker results.
	PhaseContentMerging Phase = "content_merging"

	// PhaseContentValidating validates merged unit content.
	PhaseContentValidating Phase = "content_validating"

	// PhaseEnrichDispatching fans out enrichment workers for flagged scenes.
	PhaseEnrichDispatching Phase = "enrich_dispatching"

	// PhaseEnrichMerging merges accumulated enrichment results.
	PhaseEnrichMerging Phase = "enrich_merging"

	// PhaseAssembling hands the validated plan to assembly checks.
	PhaseAssembling Phase = "assembling"

	// PhaseDone is the terminal phase.
	PhaseDone Phase = "done"
)

// IsTerminal returns true if the phase is the terminal phase.
func (p Phase) IsTerminal() bool {
	return p == PhaseDone
}

// Validate checks if the phase is valid.
func (p Phase) Validate() error {
	switch p {
	case PhaseGathering, PhasePlanning, PhasePlanValidating,
		PhaseContentDispatching, PhaseContentMerging, PhaseContentValidating,
		PhaseEnrichDispatching, PhaseEnrichMerging, PhaseAssembling, PhaseDone:
		return nil
	default:
		return fmt.Errorf("invalid phase: %s", p)
	}
}

// SubUnitStatus represents the dispatch status of a planned sub-unit.
// It is the only plan field mutated after compilation, and only by the
// merge stage.
type SubUnitStatus string

const (
	// SubUnitPending indicates the sub-unit has not been dispatched yet.
	SubUnitPending SubUnitStatus = "pending"

	// SubUnitDispatched indicates a worker is in flight for the sub-unit.
	SubUnitDispatched SubUnitStatus = "dispatched"

	// SubUnitSucceeded indicates the latest worker attempt succeeded.
	SubUnitSucceeded SubUnitStatus = "succeeded"

	// SubUnitFailed indicates the latest worker attempt failed.
	SubUnitFailed SubUnitStatus = "failed"
)

// IsTerminal returns true if the status represents a settled outcome.
func (s SubUnitStatus) IsTerminal() bool {
	return s == SubUnitSucceeded || s == SubUnitFailed
}

// Validate checks if the sub-unit status is valid.
func (s SubUnitStatus) Validate() error {
	switch s {
	case SubUnitPending, SubUnitDispatched, SubUnitSucceeded, SubUnitFailed:
		return nil
	default:
		return fmt.Errorf("invalid sub-unit status: %s", s)
	}
}

// ResultStatus represents the outcome reported by a single worker attempt.
type ResultStatus string

const (
	// ResultSuccess indicates the worker produced a usable payload.
	ResultSuccess ResultStatus = "success"

	// ResultFailure indicates the worker failed or timed out.
	ResultFailure ResultStatus = "failure"
)

// Validate checks if the result status is valid.
func (s ResultStatus) Validate() error {
	switch s {
	case ResultSuccess, ResultFailure:
		return nil
	default:
		return fmt.Errorf("invalid result status: %s", s)
	}
}

// Severity classifies a validation issue.
type Severity string

const (
	// SeverityError blocks advancement and triggers targeted retry.
	SeverityError Severity = "error"

	// SeverityWarning is a non-blocking quality signal.
	SeverityWarning Severity = "warning"
)

// Trigger is a resolved advance trigger for a planned sub-unit.
type Trigger string

const (
	// TriggerCompletion advances when the mechanic is completed.
	// It is the fallback for unknown timing hints.
	TriggerCompletion Trigger = "completion"

	// TriggerTimer advances after a timed interval.
	TriggerTimer Trigger = "timer"

	// TriggerScoreThreshold advances once a score threshold is reached.
	TriggerScoreThreshold Trigger = "score_threshold"

	// TriggerUserChoice advances on an explicit player choice.
	TriggerUserChoice Trigger = "user_choice"
)

// DefaultTriggerTable returns the built-in timing-hint to trigger lookup.
// The compiler resolves unknown hints to TriggerCompletion.
func DefaultTriggerTable() map[string]Trigger {
	return map[string]Trigger{
		"on_complete": TriggerCompletion,
		"timed":       TriggerTimer,
		"timer":       TriggerTimer,
		"score":       TriggerScoreThreshold,
		"threshold":   TriggerScoreThreshold,
		"choice":      TriggerUserChoice,
	}
}

// MarshalJSON implements custom JSON marshaling for type-safe enum serialization.
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(p))
}

// UnmarshalJSON implements custom JSON unmarshaling with validation.
func (p *Phase) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*p = Phase(str)
	return p.Validate()
}

// MarshalJSON implements custom JSON marshaling for type-safe enum serialization.
func (s SubUnitStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements custom JSON unmarshaling with validation.
func (s *SubUnitStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = SubUnitStatus(str)
	return s.Validate()
}
