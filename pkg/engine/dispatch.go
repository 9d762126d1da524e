package engine

import (
	"context"
	"errors"
	"sync"
	"time"
)

// WorkerFunc is the single seam through which all domain-specific
// generation is injected. A worker tries once and reports the outcome;
// all retry decisions live one layer up in the retry router.
type WorkerFunc func(ctx context.Context, shared SharedContext, sub PlannedSubUnit) WorkerResult

// Dispatch produces one token per key in subset, or one per sub-unit in
// the whole plan when subset is empty (the first pass). Duplicate subset
// keys collapse to one token, so a round dispatches each key at most once.
// Tokens carry the sub-unit's own plan data plus a minimal context slice;
// workers never receive the full plan.
func Dispatch(plan *ExecutionPlan, subset []UnitKey, shared SharedContext) []DispatchToken {
	if plan == nil {
		return nil
	}

	var wanted map[UnitKey]bool
	if len(subset) > 0 {
		wanted = make(map[UnitKey]bool, len(subset))
		for _, key := range subset {
			wanted[key] = true
		}
	}

	var tokens []DispatchToken
	for _, unit := range plan.Units {
		for _, sub := range unit.SubUnits {
			if wanted != nil && !wanted[sub.ID] {
				continue
			}
			tokenCtx := shared
			tokenCtx.SceneTitle = unit.Title
			tokenCtx.SceneVocabulary = unit.Vocabulary
			tokens = append(tokens, DispatchToken{
				Key:     sub.ID,
				SubUnit: sub,
				Context: tokenCtx,
			})
		}
	}
	return tokens
}

// EnrichmentKeys returns the sub-unit keys of every unit flagged for the
// enrichment pass. An empty result means the enrichment phases are skipped.
func EnrichmentKeys(plan *ExecutionPlan) []UnitKey {
	if plan == nil {
		return nil
	}
	var keys []UnitKey
	for _, unit := range plan.Units {
		if !unit.NeedsEnrichment {
			continue
		}
		for _, sub := range unit.SubUnits {
			keys = append(keys, sub.ID)
		}
	}
	return keys
}

// Dispatcher runs dispatch tokens in parallel with a bounded worker pool
// and a per-worker timeout. The only synchronization point is the barrier
// at the end of a round: Execute returns once every spawned task has
// reported (success, failure, timeout or cancellation), never leaving a
// token pending.
type Dispatcher struct {
	// maxParallel is the maximum number of concurrent workers.
	maxParallel int

	// timeout is the per-worker deadline.
	timeout time.Duration
}

// NewDispatcher creates a dispatcher. Non-positive arguments fall back to
// 8 concurrent workers and a 30 second per-worker timeout.
func NewDispatcher(maxParallel int, timeout time.Duration) *Dispatcher {
	if maxParallel <= 0 {
		maxParallel = 8
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{maxParallel: maxParallel, timeout: timeout}
}

// Execute runs one round: one task per token, collected into a result list
// in completion order. Completion order within a round is immaterial to the
// merge stage; a round dispatches each key at most once.
func (d *Dispatcher) Execute(ctx context.Context, tokens []DispatchToken, worker WorkerFunc) []WorkerResult {
	if len(tokens) == 0 {
		return nil
	}

	workerCount := d.maxParallel
	if len(tokens) < workerCount {
		workerCount = len(tokens)
	}

	queue := make(chan DispatchToken, len(tokens))
	for _, token := range tokens {
		queue <- token
	}
	close(queue)

	resultCh := make(chan WorkerResult, len(tokens))

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for token := range queue {
				resultCh <- d.runOne(ctx, token, worker)
			}
		}()
	}

	wg.Wait()
	close(resultCh)

	results := make([]WorkerResult, 0, len(tokens))
	for result := range resultCh {
		results = append(results, result)
	}
	return results
}

// runOne executes a single worker attempt under the per-worker timeout.
// A worker that blocks past its deadline gets its result synthesized as a
// failure rather than left pending.
func (d *Dispatcher) runOne(ctx context.Context, token DispatchToken, worker WorkerFunc) WorkerResult {
	execCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan WorkerResult, 1)
	go func() {
		done <- worker(execCtx, token.Context, token.SubUnit)
	}()

	select {
	case result := <-done:
		result.Key = token.Key
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	case <-execCtx.Done():
		errMsg := "timeout"
		if !errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			errMsg = "cancelled"
		}
		return WorkerResult{
			Key:        token.Key,
			Status:     ResultFailure,
			Error:      errMsg,
			DurationMs: time.Since(start).Milliseconds(),
		}
	}
}
