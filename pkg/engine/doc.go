// Package engine provides the core types and stages of the GamED content
// generation pipeline.
//
// # Overview
//
// The pipeline turns a validated game concept into a fully generated,
// validated execution plan through a fixed sequence of phases:
//
//  1. Gathering - Accept the concept and build the shared context
//  2. Planning - Compile the concept into an ExecutionPlan (Compiler)
//  3. PlanValidating - Full structural validation pass (ValidatePlan)
//  4. ContentDispatching - Fan out sub-units to content workers (Dispatcher)
//  5. ContentMerging - Fold results, last write wins (Reduce)
//  6. ContentValidating - Per-payload validation gate (ValidateUnitContent)
//  7. EnrichDispatching / EnrichMerging - Optional enrichment pass
//  8. Assembling - Final coherence check (ValidateAssembled)
//
// Validation gates feed the retry router (Route): a failed gate narrows
// the next dispatch round to exactly the failed keys, bounded by a
// per-phase retry budget. When a budget is exhausted the run advances
// degraded instead of aborting, carrying the remaining issues in
// RunOutcome.Unresolved.
//
// # Core Domain Types
//
//   - ExecutionPlan: The compiled, dispatch-ready plan for one run
//   - PlannedUnit / PlannedSubUnit: A scene and its resolved mechanics
//   - Connection: A directed edge between consecutive sub-units
//   - WorkerResult: The immutable outcome of one worker attempt
//   - MergeAccumulator: The latest result per key after reduction
//   - ValidationResult / ValidationIssue: Classified validation findings
//   - RunOutcome: The terminal result handed to downstream assembly
//
// # Workers
//
// Content generation itself lives behind WorkerFunc:
//
//	type WorkerFunc func(ctx context.Context, shared SharedContext, sub PlannedSubUnit) WorkerResult
//
// Workers receive only their own sub-unit plus a minimal SharedContext
// slice, never the full plan. The Dispatcher enforces a per-attempt
// timeout and synthesizes a failure result when a worker overruns it.
//
// # Error Classification
//
// Pipeline errors carry a class for routing decisions:
//
//   - Input: Malformed concepts, rejected before any dispatch
//   - Worker/Timeout: Attempt-level failures, eligible for retry
//   - Canceled: Context cancellation, terminal for the run
//   - Internal: Engine bugs
//
// Use the helper predicates to inspect errors:
//
//	if engine.IsRecoverable(err) {
//	    // Retry-eligible
//	}
//
// # Thread Safety
//
// A Sequencer is safe for concurrent runs; all run state lives on the
// stack of Run. Compiled plans are treated as immutable except for
// per-sub-unit Status and Payload, which only the merge stage updates.
package engine
