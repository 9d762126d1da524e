package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ShivenA99/GamED-AI-sub004/pkg/telemetry"
)

// countingWorker wraps a WorkerFunc and tracks attempts per key.
type countingWorker struct {
	mu       sync.Mutex
	attempts map[UnitKey]int
	inner    WorkerFunc
}

func newCountingWorker(inner WorkerFunc) *countingWorker {
	return &countingWorker{attempts: make(map[UnitKey]int), inner: inner}
}

func (w *countingWorker) work(ctx context.Context, shared SharedContext, sub PlannedSubUnit) WorkerResult {
	w.mu.Lock()
	w.attempts[sub.ID]++
	w.mu.Unlock()
	return w.inner(ctx, shared, sub)
}

func (w *countingWorker) count(key UnitKey) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attempts[key]
}

func (w *countingWorker) total() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	sum := 0
	for _, n := range w.attempts {
		sum += n
	}
	return sum
}

// mockRecorder captures recorder calls for assertions.
type mockRecorder struct {
	mu       sync.Mutex
	started  []string
	phases   []Phase
	results  []WorkerResult
	finished []string
	degraded bool
}

func (m *mockRecorder) RunStarted(_ context.Context, runID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, runID)
	return nil
}

func (m *mockRecorder) PhaseEntered(_ context.Context, _ string, phase Phase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phases = append(m.phases, phase)
	return nil
}

func (m *mockRecorder) ResultRecorded(_ context.Context, _ string, _ int, result WorkerResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
	return nil
}

func (m *mockRecorder) RunFinished(_ context.Context, _ string, status string, degraded bool, _ RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, status)
	m.degraded = degraded
	return nil
}

// contentWorker builds a structurally valid payload for any sub-unit.
func contentWorker(_ context.Context, _ SharedContext, sub PlannedSubUnit) WorkerResult {
	items := make([]ContentItem, sub.ExpectedItemCount)
	order := make([]string, sub.ExpectedItemCount)
	nodes := make([]BranchNode, sub.ExpectedItemCount)
	pairs := make([]MatchPair, sub.ExpectedItemCount)
	for i := range items {
		id := string(sub.ID) + "_c" + string(rune('1'+i))
		items[i] = ContentItem{ID: id, Prompt: "prompt", Answer: "answer"}
		order[i] = id
		nodes[i] = BranchNode{ID: id}
		if i+1 < len(items) {
			nodes[i].Next = []string{string(sub.ID) + "_c" + string(rune('2'+i))}
		} else {
			nodes[i].Terminal = true
		}
		pairs[i] = MatchPair{Left: id, Right: "match"}
	}

	payload := &ContentPayload{Kind: sub.Kind, Items: items}
	switch sub.Kind {
	case "sequencing":
		payload.Ordering = &OrderingContent{Order: order}
	case "branching":
		payload.Branching = &BranchingContent{StartNode: order[0], Nodes: nodes}
	case "matching":
		payload.Pairs = pairs
	}
	return WorkerResult{Key: sub.ID, Status: ResultSuccess, Payload: payload}
}

func newTestSequencer(worker WorkerFunc, deps Deps) *Sequencer {
	return NewSequencer(Options{WorkerTimeout: time.Second, MaxParallel: 4}, worker, deps)
}

func TestSequencer_Run_HappyPath(t *testing.T) {
	recorder := &mockRecorder{}
	counting := newCountingWorker(contentWorker)
	seq := newTestSequencer(counting.work, Deps{Recorder: recorder})

	outcome, err := seq.Run(context.Background(), testConcept(), nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if outcome.Degraded {
		t.Errorf("Expected clean run, got degraded with %+v", outcome.Unresolved)
	}
	if outcome.Summary.Succeeded != 4 || outcome.Summary.Failed != 0 {
		t.Errorf("Expected 4 succeeded / 0 failed, got %d / %d",
			outcome.Summary.Succeeded, outcome.Summary.Failed)
	}
	if outcome.Summary.RetryRounds != 0 {
		t.Errorf("Expected no retry rounds, got %d", outcome.Summary.RetryRounds)
	}
	if counting.total() != 4 {
		t.Errorf("Expected exactly 4 worker attempts, got %d", counting.total())
	}
	if len(outcome.Results) != 4 {
		t.Errorf("Expected 4 final results, got %d", len(outcome.Results))
	}
	for _, unit := range outcome.Plan.Units {
		for _, sub := range unit.SubUnits {
			if sub.Status != SubUnitSucceeded {
				t.Errorf("Expected %s succeeded, got %s", sub.ID, sub.Status)
			}
			if sub.Payload == nil {
				t.Errorf("Expected payload on %s", sub.ID)
			}
		}
	}

	if len(recorder.started) != 1 || len(recorder.finished) != 1 {
		t.Fatalf("Expected 1 start and 1 finish, got %d / %d", len(recorder.started), len(recorder.finished))
	}
	if recorder.finished[0] != "succeeded" {
		t.Errorf("Expected succeeded status recorded, got %s", recorder.finished[0])
	}
	wantPhases := []Phase{
		PhaseGathering, PhasePlanning, PhasePlanValidating,
		PhaseContentDispatching, PhaseContentMerging, PhaseContentValidating,
		PhaseEnrichDispatching, PhaseAssembling,
	}
	if len(recorder.phases) != len(wantPhases) {
		t.Fatalf("Expected %d phases, got %d: %v", len(wantPhases), len(recorder.phases), recorder.phases)
	}
	for i, phase := range wantPhases {
		if recorder.phases[i] != phase {
			t.Errorf("Phase %d: expected %s, got %s", i, phase, recorder.phases[i])
		}
	}
}

func TestSequencer_Run_TargetedRetry(t *testing.T) {
	// Fail unit_2_item_1 on its first attempt only.
	var mu sync.Mutex
	failures := map[UnitKey]int{"unit_2_item_1": 1}
	flaky := func(ctx context.Context, shared SharedContext, sub PlannedSubUnit) WorkerResult {
		mu.Lock()
		remaining := failures[sub.ID]
		if remaining > 0 {
			failures[sub.ID] = remaining - 1
		}
		mu.Unlock()
		if remaining > 0 {
			return WorkerResult{Key: sub.ID, Status: ResultFailure, Error: "flaky"}
		}
		return contentWorker(ctx, shared, sub)
	}

	counting := newCountingWorker(flaky)
	seq := newTestSequencer(counting.work, Deps{})

	outcome, err := seq.Run(context.Background(), testConcept(), nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if outcome.Degraded {
		t.Errorf("Expected recovery without degradation, got %+v", outcome.Unresolved)
	}
	if outcome.Summary.RetryRounds != 1 {
		t.Errorf("Expected 1 retry round, got %d", outcome.Summary.RetryRounds)
	}
	if got := counting.count("unit_2_item_1"); got != 2 {
		t.Errorf("Expected 2 attempts for the failing key, got %d", got)
	}
	// The retry is narrowed: healthy keys are not re-dispatched.
	for _, key := range []UnitKey{"unit_1_item_1", "unit_1_item_2", "unit_1_item_3"} {
		if got := counting.count(key); got != 1 {
			t.Errorf("Expected 1 attempt for %s, got %d", key, got)
		}
	}
}

func TestSequencer_Run_BudgetExhaustionDegrades(t *testing.T) {
	broken := func(ctx context.Context, shared SharedContext, sub PlannedSubUnit) WorkerResult {
		if sub.ID == "unit_1_item_2" {
			return WorkerResult{Key: sub.ID, Status: ResultFailure, Error: "always broken"}
		}
		return contentWorker(ctx, shared, sub)
	}

	counting := newCountingWorker(broken)
	recorder := &mockRecorder{}
	seq := NewSequencer(Options{MaxContentRetries: 2, WorkerTimeout: time.Second}, counting.work, Deps{Recorder: recorder})

	outcome, err := seq.Run(context.Background(), testConcept(), nil)
	if err != nil {
		t.Fatalf("Expected degraded outcome rather than error, got: %v", err)
	}

	if !outcome.Degraded {
		t.Fatal("Expected degraded outcome")
	}
	if len(outcome.Unresolved) == 0 {
		t.Error("Expected unresolved issues on a degraded run")
	}
	if outcome.Summary.Succeeded != 3 || outcome.Summary.Failed != 1 {
		t.Errorf("Expected 3 succeeded / 1 failed, got %d / %d",
			outcome.Summary.Succeeded, outcome.Summary.Failed)
	}
	// Initial round plus two retries.
	if got := counting.count("unit_1_item_2"); got != 3 {
		t.Errorf("Expected 3 attempts for the broken key, got %d", got)
	}
	// The plan is still handed over with the healthy content intact.
	if outcome.Plan == nil {
		t.Fatal("Expected a usable plan on a degraded run")
	}
	if recorder.finished[0] != "degraded" {
		t.Errorf("Expected degraded status recorded, got %s", recorder.finished[0])
	}
}

func TestSequencer_Run_EnrichmentPass(t *testing.T) {
	con := testConcept()
	con.Scenes[1].NeedsEnrichment = true

	enriched := newCountingWorker(func(ctx context.Context, shared SharedContext, sub PlannedSubUnit) WorkerResult {
		result := contentWorker(ctx, shared, sub)
		result.Payload.Items[0].Prompt = "enriched"
		return result
	})
	seq := newTestSequencer(contentWorker, Deps{EnrichWorker: enriched.work})

	outcome, err := seq.Run(context.Background(), con, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if enriched.total() != 1 {
		t.Fatalf("Expected 1 enrichment attempt, got %d", enriched.total())
	}
	if enriched.count("unit_2_item_1") != 1 {
		t.Error("Expected enrichment narrowed to the flagged unit")
	}

	sub := outcome.Plan.Units[1].SubUnits[0]
	if sub.Payload == nil || sub.Payload.Items[0].Prompt != "enriched" {
		t.Error("Expected enriched payload written back to the plan")
	}
	if outcome.Degraded {
		t.Errorf("Expected clean run, got degraded with %+v", outcome.Unresolved)
	}
}

func TestSequencer_Run_EnrichmentFailureKeepsContent(t *testing.T) {
	con := testConcept()
	con.Scenes[1].NeedsEnrichment = true

	failingEnrich := func(_ context.Context, _ SharedContext, sub PlannedSubUnit) WorkerResult {
		return WorkerResult{Key: sub.ID, Status: ResultFailure, Error: "enrich broken"}
	}
	seq := newTestSequencer(contentWorker, Deps{EnrichWorker: failingEnrich})

	outcome, err := seq.Run(context.Background(), con, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !outcome.Degraded {
		t.Error("Expected degraded outcome after enrichment budget exhaustion")
	}
	// Content generated before enrichment survives the failed pass.
	sub := outcome.Plan.Units[1].SubUnits[0]
	if sub.Status != SubUnitSucceeded || sub.Payload == nil {
		t.Error("Expected the content payload to survive a failed enrichment")
	}
}

func TestSequencer_Run_EnrichmentSkipped(t *testing.T) {
	enriched := newCountingWorker(contentWorker)
	recorder := &mockRecorder{}
	seq := newTestSequencer(contentWorker, Deps{EnrichWorker: enriched.work, Recorder: recorder})

	_, err := seq.Run(context.Background(), testConcept(), nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if enriched.total() != 0 {
		t.Errorf("Expected no enrichment attempts, got %d", enriched.total())
	}
	for _, phase := range recorder.phases {
		if phase == PhaseEnrichMerging {
			t.Error("Expected enrichment merge phase to be skipped")
		}
	}
}

func TestSequencer_Run_WithTracer(t *testing.T) {
	tracer, err := telemetry.NewTracer(telemetry.TracingConfig{
		Enabled:      true,
		Exporter:     "none",
		SamplingRate: 1.0,
	}, "gamed-test", "dev", "test")
	if err != nil {
		t.Fatalf("Expected no tracer error, got: %v", err)
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			t.Errorf("Expected clean tracer shutdown, got: %v", err)
		}
	}()

	// Run, phase and worker spans are all opened on this path; the run
	// must behave identically to an untraced one.
	seq := newTestSequencer(contentWorker, Deps{Tracer: tracer})
	outcome, err := seq.Run(context.Background(), testConcept(), nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if outcome.Degraded {
		t.Errorf("Expected clean traced run, got degraded with %+v", outcome.Unresolved)
	}
	if outcome.Summary.Succeeded != 4 {
		t.Errorf("Expected 4 succeeded, got %d", outcome.Summary.Succeeded)
	}
}

func TestSequencer_Run_NilConcept(t *testing.T) {
	seq := newTestSequencer(contentWorker, Deps{})

	_, err := seq.Run(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("Expected error for nil concept, got nil")
	}
	if !IsInput(err) {
		t.Error("Expected input error for nil concept")
	}
}

func TestSequencer_Run_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	seq := newTestSequencer(contentWorker, Deps{})

	outcome, err := seq.Run(ctx, testConcept(), nil)
	if err == nil {
		t.Fatal("Expected error for cancelled context, got nil")
	}
	if !IsCanceled(err) {
		t.Errorf("Expected canceled error, got: %v", err)
	}
	if outcome != nil {
		t.Error("Expected no outcome for a cancelled run")
	}
}
