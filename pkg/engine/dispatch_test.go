package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func okWorker(_ context.Context, _ SharedContext, sub PlannedSubUnit) WorkerResult {
	return WorkerResult{
		Key:     sub.ID,
		Status:  ResultSuccess,
		Payload: &ContentPayload{Kind: sub.Kind},
	}
}

func TestDispatch_OneTokenPerSubUnit(t *testing.T) {
	plan := validPlan(t)
	shared := SharedContext{RunID: "run1", Title: plan.Title, Subject: plan.Subject}

	tokens := Dispatch(plan, nil, shared)

	if len(tokens) != 4 {
		t.Fatalf("Expected 4 tokens, got %d", len(tokens))
	}
	seen := map[UnitKey]bool{}
	for _, token := range tokens {
		if seen[token.Key] {
			t.Errorf("Duplicate token for key %s", token.Key)
		}
		seen[token.Key] = true
	}
}

func TestDispatch_SubsetAndDeduplication(t *testing.T) {
	plan := validPlan(t)

	tokens := Dispatch(plan, []UnitKey{"unit_1_item_2", "unit_1_item_2", "unit_2_item_1"}, SharedContext{})

	if len(tokens) != 2 {
		t.Fatalf("Expected 2 tokens for deduplicated subset, got %d", len(tokens))
	}
}

func TestDispatch_UnknownSubsetKeysYieldNothing(t *testing.T) {
	plan := validPlan(t)

	tokens := Dispatch(plan, []UnitKey{"unit_9_item_9"}, SharedContext{})
	if len(tokens) != 0 {
		t.Errorf("Expected no tokens for unknown keys, got %d", len(tokens))
	}
}

func TestDispatch_MinimalContextSlice(t *testing.T) {
	plan := validPlan(t)
	shared := SharedContext{RunID: "run1", Title: plan.Title, Subject: plan.Subject, Difficulty: plan.Difficulty}

	tokens := Dispatch(plan, []UnitKey{"unit_2_item_1"}, shared)
	if len(tokens) != 1 {
		t.Fatalf("Expected 1 token, got %d", len(tokens))
	}

	ctx := tokens[0].Context
	if ctx.SceneTitle != "Membrane Crossing" {
		t.Errorf("Expected owning scene title, got %q", ctx.SceneTitle)
	}
	if len(ctx.SceneVocabulary) != 1 || ctx.SceneVocabulary[0] != "membrane" {
		t.Errorf("Expected owning scene vocabulary, got %v", ctx.SceneVocabulary)
	}
	if ctx.RunID != "run1" || ctx.Subject != plan.Subject {
		t.Error("Expected run-level context carried through")
	}
}

func TestEnrichmentKeys(t *testing.T) {
	plan := validPlan(t)
	if keys := EnrichmentKeys(plan); len(keys) != 0 {
		t.Errorf("Expected no enrichment keys, got %v", keys)
	}

	plan.Units[0].NeedsEnrichment = true
	keys := EnrichmentKeys(plan)
	if len(keys) != 3 {
		t.Fatalf("Expected 3 enrichment keys, got %d", len(keys))
	}
}

func TestDispatcher_Execute_AllResultsCollected(t *testing.T) {
	plan := validPlan(t)
	tokens := Dispatch(plan, nil, SharedContext{})

	dispatcher := NewDispatcher(2, time.Second)
	results := dispatcher.Execute(context.Background(), tokens, okWorker)

	if len(results) != len(tokens) {
		t.Fatalf("Expected %d results, got %d", len(tokens), len(results))
	}
	for _, result := range results {
		if result.Status != ResultSuccess {
			t.Errorf("Expected success for %s, got %s", result.Key, result.Status)
		}
	}
}

func TestDispatcher_Execute_EmptyTokens(t *testing.T) {
	dispatcher := NewDispatcher(2, time.Second)
	if results := dispatcher.Execute(context.Background(), nil, okWorker); results != nil {
		t.Errorf("Expected nil results for empty token list, got %v", results)
	}
}

func TestDispatcher_Execute_BoundsParallelism(t *testing.T) {
	plan := validPlan(t)
	tokens := Dispatch(plan, nil, SharedContext{})

	var active, peak int32
	var mu sync.Mutex
	worker := func(_ context.Context, _ SharedContext, sub PlannedSubUnit) WorkerResult {
		now := atomic.AddInt32(&active, 1)
		mu.Lock()
		if now > peak {
			peak = now
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return WorkerResult{Key: sub.ID, Status: ResultSuccess, Payload: &ContentPayload{}}
	}

	NewDispatcher(2, time.Second).Execute(context.Background(), tokens, worker)

	mu.Lock()
	defer mu.Unlock()
	if peak > 2 {
		t.Errorf("Expected at most 2 concurrent workers, observed %d", peak)
	}
}

func TestDispatcher_Execute_SynthesizesTimeoutFailure(t *testing.T) {
	plan := validPlan(t)
	tokens := Dispatch(plan, []UnitKey{"unit_1_item_1"}, SharedContext{})

	blocked := func(ctx context.Context, _ SharedContext, sub PlannedSubUnit) WorkerResult {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return WorkerResult{Key: sub.ID, Status: ResultSuccess}
	}

	results := NewDispatcher(1, 30*time.Millisecond).Execute(context.Background(), tokens, blocked)

	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].Status != ResultFailure {
		t.Errorf("Expected synthesized failure, got %s", results[0].Status)
	}
	if results[0].Error != "timeout" {
		t.Errorf("Expected timeout error, got %q", results[0].Error)
	}
}

func TestDispatcher_Execute_Cancellation(t *testing.T) {
	plan := validPlan(t)
	tokens := Dispatch(plan, nil, SharedContext{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	slow := func(ctx context.Context, _ SharedContext, sub PlannedSubUnit) WorkerResult {
		select {
		case <-ctx.Done():
			return WorkerResult{Key: sub.ID, Status: ResultFailure, Error: "cancelled"}
		case <-time.After(time.Second):
			return WorkerResult{Key: sub.ID, Status: ResultSuccess}
		}
	}

	results := NewDispatcher(2, time.Second).Execute(ctx, tokens, slow)

	if len(results) != len(tokens) {
		t.Fatalf("Expected every token to report, got %d of %d", len(results), len(tokens))
	}
	for _, result := range results {
		if result.Status != ResultFailure {
			t.Errorf("Expected failure under cancelled context, got %s", result.Status)
		}
	}
}
