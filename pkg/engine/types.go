package engine

import (
	"time"
)

// UnitKey identifies a single planned sub-unit (a scene mechanic) across
// dispatch, merge and retry. Keys are formulaic: "unit_<n>_item_<m>".
type UnitKey string

// ExecutionPlan is the compiler's output: the fully resolved, dispatch-ready
// plan for one run. Once compiled the plan never changes shape; only
// per-sub-unit Status and Payload are updated as results arrive, and only
// by the merge stage.
type ExecutionPlan struct {
	// Title is the game title, carried from the concept.
	Title string `json:"title"`

	// Subject is the learning subject.
	Subject string `json:"subject"`

	// Difficulty is the target difficulty level.
	Difficulty string `json:"difficulty,omitempty"`

	// Vocabulary is the concept's global label/tag scope.
	Vocabulary []string `json:"vocabulary,omitempty"`

	// Units are the planned scenes, in play order.
	Units []PlannedUnit `json:"units"`

	// TotalMaxScore is the sum of unit max scores.
	TotalMaxScore int `json:"total_max_score"`
}

// PlannedUnit is one resolved scene.
type PlannedUnit struct {
	// ID is the formulaic unit identifier ("unit_<n>", 1-based).
	ID string `json:"id"`

	// Title is the scene title.
	Title string `json:"title"`

	// Theme is the scene styling from the design layer.
	Theme string `json:"theme,omitempty"`

	// Vocabulary is the scene-level scope.
	Vocabulary []string `json:"vocabulary,omitempty"`

	// NeedsEnrichment flags the unit for the enrichment pass.
	NeedsEnrichment bool `json:"needs_enrichment,omitempty"`

	// SubUnits are the resolved mechanics, in play order.
	SubUnits []PlannedSubUnit `json:"sub_units"`

	// Connections are the directed edges between consecutive sub-units.
	Connections []Connection `json:"connections,omitempty"`

	// UnitMaxScore is the sum of sub-unit max scores.
	UnitMaxScore int `json:"unit_max_score"`
}

// PlannedSubUnit is one resolved work item: a scene mechanic ready for
// dispatch to a generation worker.
type PlannedSubUnit struct {
	// ID is the formulaic sub-unit identifier ("unit_<n>_item_<m>").
	ID UnitKey `json:"id"`

	// UnitID is the owning unit's identifier.
	UnitID string `json:"unit_id"`

	// Kind is the mechanic type tag.
	Kind string `json:"kind"`

	// ExpectedItemCount is how many content items the worker must produce.
	ExpectedItemCount int `json:"expected_item_count"`

	// PointsPerItem is the score weight per item.
	PointsPerItem int `json:"points_per_item"`

	// MaxScore is ExpectedItemCount times PointsPerItem.
	MaxScore int `json:"max_score"`

	// IsTerminal is true for the last sub-unit in its unit.
	IsTerminal bool `json:"is_terminal"`

	// AdvanceTrigger is the resolved advance trigger.
	AdvanceTrigger Trigger `json:"advance_trigger"`

	// TriggerValue is the trigger's parameter, if any.
	TriggerValue string `json:"trigger_value,omitempty"`

	// ScopeMode is the declared scope mode ("scope_bound"/"scope_free").
	ScopeMode string `json:"scope_mode,omitempty"`

	// Scope lists scene vocabulary entries the mechanic draws on.
	Scope []string `json:"scope,omitempty"`

	// Styling is the design layer's visual styling text.
	Styling string `json:"styling,omitempty"`

	// Instructions is the player-facing instructional text.
	Instructions string `json:"instructions,omitempty"`

	// Status is the sub-unit's dispatch status; mutated only by the
	// merge stage.
	Status SubUnitStatus `json:"status"`

	// Payload is the generated content, set by the merge stage once a
	// successful result exists.
	Payload *ContentPayload `json:"payload,omitempty"`
}

// Connection is a directed edge between two sub-units of the same unit,
// derived purely from list order: sub-unit i connects to sub-unit i+1.
type Connection struct {
	// From is the source sub-unit id.
	From UnitKey `json:"from"`

	// To is the target sub-unit id.
	To UnitKey `json:"to"`

	// Trigger is the advance trigger carried from the source sub-unit.
	Trigger Trigger `json:"trigger"`

	// TriggerValue is the trigger's parameter, if any.
	TriggerValue string `json:"trigger_value,omitempty"`
}

// WorkerResult is the immutable outcome of one worker attempt. Multiple
// attempts for the same key may exist across retry rounds; the merge stage
// keeps the latest by arrival order.
type WorkerResult struct {
	// Key is the sub-unit the attempt was for.
	Key UnitKey `json:"key"`

	// Status is success or failure.
	Status ResultStatus `json:"status"`

	// Payload is the generated content on success.
	Payload *ContentPayload `json:"payload,omitempty"`

	// Error describes the failure, if any.
	Error string `json:"error,omitempty"`

	// DurationMs is the attempt's wall-clock duration in milliseconds.
	DurationMs int64 `json:"duration_ms"`
}

// MergeAccumulator is the reducer's output: the latest result per key plus
// derived success/failure key sets.
type MergeAccumulator struct {
	// Latest maps each unit key to the most recent result seen.
	Latest map[UnitKey]WorkerResult `json:"latest"`

	// SuccessKeys are keys whose latest result succeeded, sorted.
	SuccessKeys []UnitKey `json:"success_keys"`

	// FailureKeys are keys whose latest result failed, sorted.
	FailureKeys []UnitKey `json:"failure_keys"`
}

// ValidationIssue is a single classified finding from the validation engine.
type ValidationIssue struct {
	// Severity is error or warning.
	Severity Severity `json:"severity"`

	// Message is the human-readable finding.
	Message string `json:"message"`

	// FieldPath locates the finding within the artifact.
	FieldPath string `json:"field_path,omitempty"`

	// Key is the related unit key, if any.
	Key UnitKey `json:"key,omitempty"`
}

// ValidationResult aggregates all issues found in a single full pass.
// Passed is true iff no issue has error severity.
type ValidationResult struct {
	Passed bool              `json:"passed"`
	Issues []ValidationIssue `json:"issues,omitempty"`
}

// Errors returns only the error-severity issues.
func (r ValidationResult) Errors() []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			out = append(out, issue)
		}
	}
	return out
}

// Warnings returns only the warning-severity issues.
func (r ValidationResult) Warnings() []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range r.Issues {
		if issue.Severity == SeverityWarning {
			out = append(out, issue)
		}
	}
	return out
}

// SharedContext is the minimal slice of global context a worker receives
// alongside its own sub-unit. Workers never see the full plan.
type SharedContext struct {
	// RunID identifies the run.
	RunID string `json:"run_id"`

	// Title is the game title.
	Title string `json:"title"`

	// Subject is the learning subject.
	Subject string `json:"subject"`

	// Difficulty is the target difficulty.
	Difficulty string `json:"difficulty,omitempty"`

	// SceneTitle is the owning scene's title.
	SceneTitle string `json:"scene_title"`

	// SceneVocabulary is the owning scene's scope.
	SceneVocabulary []string `json:"scene_vocabulary,omitempty"`
}

// DispatchToken is one unit of dispatch work: the sub-unit's own plan data
// plus the shared context slice its worker needs.
type DispatchToken struct {
	Key     UnitKey        `json:"key"`
	SubUnit PlannedSubUnit `json:"sub_unit"`
	Context SharedContext  `json:"context"`
}

// RunSummary provides statistics about a completed run.
type RunSummary struct {
	// TotalSubUnits is the number of planned sub-units.
	TotalSubUnits int `json:"total_sub_units"`

	// Succeeded is the number of sub-units with a successful final result.
	Succeeded int `json:"succeeded"`

	// Failed is the number of sub-units whose final result failed.
	Failed int `json:"failed"`

	// RetryRounds is the total number of retry rounds across phases.
	RetryRounds int `json:"retry_rounds"`

	// Duration is the run's wall-clock duration.
	Duration time.Duration `json:"duration"`
}

// RunOutcome is the terminal result handed to downstream assembly.
// It always carries the best available plan; Degraded is set whenever any
// phase exhausted its retry budget while issues remained.
type RunOutcome struct {
	// RunID identifies the run.
	RunID string `json:"run_id"`

	// Plan is the compiled plan with final sub-unit statuses and payloads.
	Plan *ExecutionPlan `json:"plan"`

	// Results is the final deduplicated result per unit key.
	Results map[UnitKey]WorkerResult `json:"results"`

	// Degraded is true if any retry budget was exhausted with issues left.
	Degraded bool `json:"degraded"`

	// Unresolved lists the issues still present when the run finished.
	Unresolved []ValidationIssue `json:"unresolved,omitempty"`

	// Summary provides run statistics.
	Summary RunSummary `json:"summary"`
}

// AssembledArtifact pairs a finished plan with its results for the final
// assembly validation pass. The consumer-facing artifact format itself is
// owned downstream.
type AssembledArtifact struct {
	Plan    *ExecutionPlan           `json:"plan"`
	Results map[UnitKey]WorkerResult `json:"results"`
}
