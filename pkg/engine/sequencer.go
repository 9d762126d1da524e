package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/ShivenA99/GamED-AI-sub004/pkg/concept"
	"github.com/ShivenA99/GamED-AI-sub004/pkg/telemetry"
)

// Default retry and execution limits.
const (
	DefaultMaxPlanRetries    = 1
	DefaultMaxContentRetries = 2
	DefaultMaxEnrichRetries  = 1
	DefaultWorkerTimeout     = 30 * time.Second
	DefaultMaxParallel       = 8
)

// Options configures a Sequencer. The zero value is usable; unset fields
// fall back to the defaults above.
type Options struct {
	// MaxPlanRetries bounds the planning -> plan-validating self-loop.
	MaxPlanRetries int

	// MaxContentRetries bounds the content dispatch/merge/validate loop.
	MaxContentRetries int

	// MaxEnrichRetries bounds the enrichment dispatch/merge loop.
	MaxEnrichRetries int

	// WorkerTimeout is the per-attempt deadline given to each worker.
	WorkerTimeout time.Duration

	// MaxParallel caps concurrent worker executions.
	MaxParallel int

	// TriggerTable overrides the compiler's hint lookup table.
	TriggerTable map[string]Trigger
}

func (o Options) withDefaults() Options {
	if o.MaxPlanRetries <= 0 {
		o.MaxPlanRetries = DefaultMaxPlanRetries
	}
	if o.MaxContentRetries <= 0 {
		o.MaxContentRetries = DefaultMaxContentRetries
	}
	if o.MaxEnrichRetries <= 0 {
		o.MaxEnrichRetries = DefaultMaxEnrichRetries
	}
	if o.WorkerTimeout <= 0 {
		o.WorkerTimeout = DefaultWorkerTimeout
	}
	if o.MaxParallel <= 0 {
		o.MaxParallel = DefaultMaxParallel
	}
	return o
}

// RunRecorder persists run history. Implementations must be safe for
// concurrent use. All methods are best-effort from the sequencer's point
// of view: recording failures are logged, never fatal to the run.
type RunRecorder interface {
	RunStarted(ctx context.Context, runID, title string) error
	PhaseEntered(ctx context.Context, runID string, phase Phase) error
	ResultRecorded(ctx context.Context, runID string, round int, result WorkerResult) error
	RunFinished(ctx context.Context, runID, status string, degraded bool, summary RunSummary) error
}

// Deps carries the sequencer's optional collaborators. Any field may be
// nil; nil telemetry is replaced by no-ops and a nil recorder disables
// history.
type Deps struct {
	// EnrichWorker handles the enrichment pass. Falls back to the
	// content worker when nil.
	EnrichWorker WorkerFunc

	Logger   *telemetry.Logger
	Metrics  *telemetry.Metrics
	Tracer   *telemetry.Tracer
	Recorder RunRecorder
}

// Sequencer drives a run through the fixed phase order, feeding each
// phase's output to the next and looping bounded retries through the
// dispatch stages. A Sequencer is safe for concurrent runs; all run
// state lives on the stack of Run.
type Sequencer struct {
	opts         Options
	compiler     *Compiler
	dispatcher   *Dispatcher
	worker       WorkerFunc
	enrichWorker WorkerFunc
	logger       *telemetry.Logger
	metrics      *telemetry.Metrics
	tracer       *telemetry.Tracer
	recorder     RunRecorder
}

// NewSequencer creates a Sequencer around the given content worker.
func NewSequencer(opts Options, worker WorkerFunc, deps Deps) *Sequencer {
	opts = opts.withDefaults()
	enrich := deps.EnrichWorker
	if enrich == nil {
		enrich = worker
	}
	logger := deps.Logger
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	return &Sequencer{
		opts:         opts,
		compiler:     NewCompiler(opts.TriggerTable),
		dispatcher:   NewDispatcher(opts.MaxParallel, opts.WorkerTimeout),
		worker:       worker,
		enrichWorker: enrich,
		logger:       logger,
		metrics:      deps.Metrics,
		tracer:       deps.Tracer,
		recorder:     deps.Recorder,
	}
}

// runState is the mutable per-run bookkeeping threaded through phases.
type runState struct {
	runID  string
	plan   *ExecutionPlan
	shared SharedContext

	// content pass
	contentResults []WorkerResult
	contentAcc     MergeAccumulator
	contentSubset  []UnitKey

	// enrichment pass
	enrichResults []WorkerResult
	enrichAcc     MergeAccumulator
	enrichSubset  []UnitKey
	enrichSkipped bool

	planRetries    int
	contentRetries int
	enrichRetries  int
	round          int

	degraded   bool
	unresolved []ValidationIssue
}

func (st *runState) retryRounds() int {
	return st.planRetries + st.contentRetries + st.enrichRetries
}

// Run executes the full pipeline for one concept and returns the terminal
// outcome. The returned error is non-nil only for unrecoverable failures
// (malformed input, cancellation); exhausted retries instead produce a
// degraded outcome with Unresolved populated.
func (s *Sequencer) Run(ctx context.Context, con *concept.Concept, designs map[string]concept.SceneDesign) (*RunOutcome, error) {
	runID := uuid.New().String()
	start := time.Now()
	logger := s.logger.WithRunID(runID)

	if s.tracer != nil {
		spanCtx, span := s.tracer.StartRunSpan(ctx, runID)
		ctx = spanCtx
		defer span.End()
	}

	s.metrics.RecordRunStarted()
	title := ""
	if con != nil {
		title = con.Title
	}
	s.record(ctx, logger, func(r RunRecorder) error { return r.RunStarted(ctx, runID, title) })

	st := &runState{runID: runID}
	phase := PhaseGathering
	logger.Infof("run started: %q", title)

	for !phase.IsTerminal() {
		if err := ctx.Err(); err != nil {
			logger.WithPhase(string(phase)).Warn("run cancelled")
			s.finishRun(ctx, logger, runID, st, "cancelled", time.Since(start))
			return nil, NewCanceledError("run cancelled", err).
				WithPhase(phase).WithCode(ErrCodeRunCancelled)
		}

		phaseStart := time.Now()
		s.record(ctx, logger, func(r RunRecorder) error { return r.PhaseEntered(ctx, runID, phase) })

		phaseCtx := ctx
		var phaseSpan trace.Span
		if s.tracer != nil {
			phaseCtx, phaseSpan = s.tracer.StartPhaseSpan(ctx, runID, string(phase))
		}
		next, err := s.step(phaseCtx, logger.WithPhase(string(phase)), st, phase, con, designs)
		if phaseSpan != nil {
			telemetry.RecordError(phaseSpan, err)
			phaseSpan.End()
		}
		s.metrics.RecordPhase(string(phase), time.Since(phaseStart))
		if err != nil {
			s.finishRun(ctx, logger, runID, st, "failed", time.Since(start))
			return nil, err
		}
		phase = next
	}

	outcome := s.assembleOutcome(st, time.Since(start))
	status := "succeeded"
	if outcome.Degraded {
		status = "degraded"
	}
	s.finishRunSummary(ctx, logger, runID, status, outcome.Degraded, outcome.Summary, time.Since(start))
	logger.Infof("run finished: status=%s succeeded=%d failed=%d retries=%d",
		status, outcome.Summary.Succeeded, outcome.Summary.Failed, outcome.Summary.RetryRounds)
	return outcome, nil
}

// step executes one phase and returns the next phase. Retry loops are
// expressed by returning an earlier phase.
func (s *Sequencer) step(ctx context.Context, logger *telemetry.Logger, st *runState, phase Phase, con *concept.Concept, designs map[string]concept.SceneDesign) (Phase, error) {
	switch phase {
	case PhaseGathering:
		if con == nil {
			return phase, NewInputError("no concept provided", nil).
				WithPhase(phase).WithCode(ErrCodeEmptyConcept)
		}
		st.shared = SharedContext{
			RunID:      st.runID,
			Title:      con.Title,
			Subject:    con.Subject,
			Difficulty: con.Difficulty,
		}
		return PhasePlanning, nil

	case PhasePlanning:
		plan, err := s.compiler.Compile(con, designs)
		if err != nil {
			return phase, err
		}
		st.plan = plan
		logger.Infof("plan compiled: units=%d max_score=%d", len(plan.Units), plan.TotalMaxScore)
		return PhasePlanValidating, nil

	case PhasePlanValidating:
		validation := ValidatePlan(st.plan)
		s.recordIssues(validation)
		decision := Route(validation, st.planRetries, s.opts.MaxPlanRetries)
		if decision.Kind == RouteRetry {
			st.planRetries++
			s.metrics.RecordRetryRound(string(phase))
			logger.Warnf("plan validation failed, retrying (round %d)", st.planRetries)
			return PhasePlanning, nil
		}
		s.advance(st, logger, validation, decision)
		return PhaseContentDispatching, nil

	case PhaseContentDispatching:
		tokens := Dispatch(st.plan, st.contentSubset, st.shared)
		logger.Infof("dispatching %d content worker(s)", len(tokens))
		results := s.dispatcher.Execute(ctx, tokens, s.instrument("content", s.worker))
		st.contentResults = append(st.contentResults, results...)
		st.round++
		s.recordResults(ctx, logger, st, results)
		return PhaseContentMerging, nil

	case PhaseContentMerging:
		st.contentAcc = Reduce(st.contentResults)
		st.contentAcc.ApplyToPlan(st.plan)
		return PhaseContentValidating, nil

	case PhaseContentValidating:
		validation := s.validateContent(st)
		s.recordIssues(validation)
		decision := Route(validation, st.contentRetries, s.opts.MaxContentRetries)
		if decision.Kind == RouteRetry {
			st.contentRetries++
			st.contentSubset = decision.Keys
			s.metrics.RecordRetryRound(string(phase))
			logger.Warnf("content validation failed for %d key(s), retrying (round %d)",
				len(decision.Keys), st.contentRetries)
			return PhaseContentDispatching, nil
		}
		s.advance(st, logger, validation, decision)
		st.contentSubset = nil
		return PhaseEnrichDispatching, nil

	case PhaseEnrichDispatching:
		keys := st.enrichSubset
		if keys == nil {
			keys = EnrichmentKeys(st.plan)
		}
		if len(keys) == 0 {
			st.enrichSkipped = true
			logger.Info("no units flagged for enrichment, skipping")
			return PhaseAssembling, nil
		}
		tokens := Dispatch(st.plan, keys, st.shared)
		logger.Infof("dispatching %d enrichment worker(s)", len(tokens))
		results := s.dispatcher.Execute(ctx, tokens, s.instrument("enrich", s.enrichWorker))
		st.enrichResults = append(st.enrichResults, results...)
		st.round++
		s.recordResults(ctx, logger, st, results)
		return PhaseEnrichMerging, nil

	case PhaseEnrichMerging:
		st.enrichAcc = Reduce(st.enrichResults)
		applyEnrichment(st.plan, st.enrichAcc)
		validation := enrichmentValidation(st.enrichAcc)
		s.recordIssues(validation)
		decision := Route(validation, st.enrichRetries, s.opts.MaxEnrichRetries)
		if decision.Kind == RouteRetry {
			st.enrichRetries++
			st.enrichSubset = decision.Keys
			s.metrics.RecordRetryRound(string(phase))
			logger.Warnf("enrichment failed for %d key(s), retrying (round %d)",
				len(decision.Keys), st.enrichRetries)
			return PhaseEnrichDispatching, nil
		}
		s.advance(st, logger, validation, decision)
		return PhaseAssembling, nil

	case PhaseAssembling:
		artifact := &AssembledArtifact{Plan: st.plan, Results: s.finalResults(st)}
		validation := ValidateAssembled(artifact)
		s.recordIssues(validation)
		if !validation.Passed {
			st.degraded = true
		}
		st.unresolved = append(st.unresolved, validation.Issues...)
		return PhaseDone, nil

	default:
		return phase, NewInternalError(fmt.Sprintf("unknown phase %q", phase), nil).
			WithCode(ErrCodeInternal)
	}
}

// advance folds a non-retry route decision into run state: a degraded
// advance keeps the gate's remaining errors as unresolved issues, and
// warnings are always carried forward.
func (s *Sequencer) advance(st *runState, logger *telemetry.Logger, validation ValidationResult, decision RouteDecision) {
	if decision.Degraded {
		st.degraded = true
		st.unresolved = append(st.unresolved, validation.Errors()...)
		logger.Warnf("advancing degraded with %d unresolved error(s)", len(validation.Errors()))
	}
	st.unresolved = append(st.unresolved, validation.Warnings()...)
}

// validateContent checks every planned sub-unit against its latest merged
// result: missing or failed results and malformed payloads all surface as
// attributable error issues.
func (s *Sequencer) validateContent(st *runState) ValidationResult {
	var issues []ValidationIssue
	for _, unit := range st.plan.Units {
		for _, sub := range unit.SubUnits {
			result, ok := st.contentAcc.Latest[sub.ID]
			if !ok {
				issues = append(issues, ValidationIssue{
					Severity: SeverityError,
					Message:  "no result received",
					Key:      sub.ID,
				})
				continue
			}
			if result.Status == ResultFailure {
				issues = append(issues, ValidationIssue{
					Severity: SeverityError,
					Message:  fmt.Sprintf("worker failed: %s", result.Error),
					Key:      sub.ID,
				})
				continue
			}
			issues = append(issues, ValidateUnitContent(result.Payload, sub).Issues...)
		}
	}
	return ValidationResult{Passed: !hasErrors(issues), Issues: issues}
}

// applyEnrichment overlays successful enrichment payloads onto the plan.
// Unlike the content merge, enrichment failures never demote a sub-unit
// that already holds good content.
func applyEnrichment(plan *ExecutionPlan, acc MergeAccumulator) {
	for ui := range plan.Units {
		unit := &plan.Units[ui]
		for si := range unit.SubUnits {
			sub := &unit.SubUnits[si]
			result, ok := acc.Latest[sub.ID]
			if !ok || result.Status != ResultSuccess || result.Payload == nil {
				continue
			}
			sub.Payload = result.Payload
		}
	}
}

// enrichmentValidation expresses the enrichment merge outcome in the
// router's input shape so the same narrowing rules apply.
func enrichmentValidation(acc MergeAccumulator) ValidationResult {
	var issues []ValidationIssue
	for _, key := range acc.FailureKeys {
		issues = append(issues, ValidationIssue{
			Severity: SeverityError,
			Message:  fmt.Sprintf("enrichment failed: %s", acc.Latest[key].Error),
			Key:      key,
		})
	}
	return ValidationResult{Passed: len(issues) == 0, Issues: issues}
}

// finalResults merges the content accumulator with successful enrichment
// overlays into the run's terminal result map.
func (s *Sequencer) finalResults(st *runState) map[UnitKey]WorkerResult {
	out := make(map[UnitKey]WorkerResult, len(st.contentAcc.Latest))
	for key, result := range st.contentAcc.Latest {
		out[key] = result
	}
	for key, result := range st.enrichAcc.Latest {
		if result.Status == ResultSuccess {
			out[key] = result
		}
	}
	return out
}

func (s *Sequencer) assembleOutcome(st *runState, elapsed time.Duration) *RunOutcome {
	results := s.finalResults(st)
	summary := RunSummary{
		RetryRounds: st.retryRounds(),
		Duration:    elapsed,
	}
	for _, unit := range st.plan.Units {
		summary.TotalSubUnits += len(unit.SubUnits)
		for _, sub := range unit.SubUnits {
			switch sub.Status {
			case SubUnitSucceeded:
				summary.Succeeded++
			case SubUnitFailed:
				summary.Failed++
			}
		}
	}
	return &RunOutcome{
		RunID:      st.runID,
		Plan:       st.plan,
		Results:    results,
		Degraded:   st.degraded,
		Unresolved: st.unresolved,
		Summary:    summary,
	}
}

// instrument wraps a worker with per-attempt metrics and tracing.
func (s *Sequencer) instrument(pass string, worker WorkerFunc) WorkerFunc {
	return func(ctx context.Context, shared SharedContext, sub PlannedSubUnit) WorkerResult {
		if s.tracer != nil {
			spanCtx, span := s.tracer.StartWorkerSpan(ctx, string(sub.ID), sub.Kind)
			ctx = spanCtx
			defer span.End()
		}
		start := time.Now()
		result := worker(ctx, shared, sub)
		s.metrics.RecordWorker(pass+"_"+sub.Kind, string(result.Status), time.Since(start))
		return result
	}
}

func (s *Sequencer) recordIssues(validation ValidationResult) {
	if errs := validation.Errors(); len(errs) > 0 {
		s.metrics.RecordValidationIssues(string(SeverityError), len(errs))
	}
	if warns := validation.Warnings(); len(warns) > 0 {
		s.metrics.RecordValidationIssues(string(SeverityWarning), len(warns))
	}
}

func (s *Sequencer) recordResults(ctx context.Context, logger *telemetry.Logger, st *runState, results []WorkerResult) {
	for _, result := range results {
		result := result
		if result.Status == ResultFailure {
			logger.WithUnitKey(string(result.Key)).
				WithError(ClassifyFailure(result)).
				Warn("worker attempt failed")
		}
		s.record(ctx, logger, func(r RunRecorder) error {
			return r.ResultRecorded(ctx, st.runID, st.round, result)
		})
	}
}

func (s *Sequencer) finishRun(ctx context.Context, logger *telemetry.Logger, runID string, st *runState, status string, elapsed time.Duration) {
	summary := RunSummary{RetryRounds: st.retryRounds(), Duration: elapsed}
	s.finishRunSummary(ctx, logger, runID, status, st.degraded, summary, elapsed)
}

func (s *Sequencer) finishRunSummary(ctx context.Context, logger *telemetry.Logger, runID, status string, degraded bool, summary RunSummary, elapsed time.Duration) {
	s.metrics.RecordRunCompleted(status, elapsed)
	s.record(ctx, logger, func(r RunRecorder) error {
		return r.RunFinished(ctx, runID, status, degraded, summary)
	})
}

// record invokes a recorder call when a recorder is configured, logging
// rather than propagating failures.
func (s *Sequencer) record(ctx context.Context, logger *telemetry.Logger, fn func(RunRecorder) error) {
	if s.recorder == nil {
		return
	}
	if err := fn(s.recorder); err != nil {
		logger.WithError(err).Warn("run recorder call failed")
	}
}
