package worker

import (
	"context"
	"reflect"
	"testing"

	"github.com/ShivenA99/GamED-AI-sub004/pkg/engine"
)

func testSub(kind string, count int) engine.PlannedSubUnit {
	return engine.PlannedSubUnit{
		ID:                "unit_1_item_1",
		UnitID:            "unit_1",
		Kind:              kind,
		ExpectedItemCount: count,
		PointsPerItem:     5,
		Scope:             []string{"nucleus", "ribosome"},
	}
}

func TestGenerator_Generate_PassesContentValidation(t *testing.T) {
	gen := NewGenerator()
	shared := engine.SharedContext{Subject: "biology", SceneVocabulary: []string{"nucleus", "ribosome"}}

	for _, kind := range []string{"drag_drop", "sequencing", "branching", "matching", "quiz"} {
		sub := testSub(kind, 4)
		result := gen.Generate(context.Background(), shared, sub)

		if result.Status != engine.ResultSuccess {
			t.Fatalf("%s: expected success, got %s", kind, result.Status)
		}
		validation := engine.ValidateUnitContent(result.Payload, sub)
		if !validation.Passed {
			t.Errorf("%s: generated payload failed validation: %+v", kind, validation.Issues)
		}
	}
}

func TestGenerator_Generate_Deterministic(t *testing.T) {
	gen := NewGenerator()
	shared := engine.SharedContext{Subject: "biology"}
	sub := testSub("quiz", 3)

	first := gen.Generate(context.Background(), shared, sub)
	second := gen.Generate(context.Background(), shared, sub)

	if !reflect.DeepEqual(first, second) {
		t.Error("Expected identical results for identical inputs")
	}
}

func TestGenerator_Generate_PadsTermsBeyondScope(t *testing.T) {
	gen := NewGenerator()
	sub := testSub("quiz", 5) // scope has only 2 entries

	result := gen.Generate(context.Background(), engine.SharedContext{Subject: "biology"}, sub)

	if len(result.Payload.Items) != 5 {
		t.Fatalf("Expected 5 items, got %d", len(result.Payload.Items))
	}
	for _, item := range result.Payload.Items {
		if item.Answer == "" {
			t.Errorf("Expected every item to carry an answer, %s is empty", item.ID)
		}
	}
}

func TestGenerator_Enrich_DecoratesPrompts(t *testing.T) {
	gen := NewGenerator()
	shared := engine.SharedContext{Subject: "biology", SceneTitle: "Inside the Cell"}
	sub := testSub("quiz", 2)

	plain := gen.Generate(context.Background(), shared, sub)
	enriched := gen.Enrich(context.Background(), shared, sub)

	if enriched.Payload.Items[0].Prompt == plain.Payload.Items[0].Prompt {
		t.Error("Expected enrichment to change the prompt")
	}
	validation := engine.ValidateUnitContent(enriched.Payload, sub)
	if !validation.Passed {
		t.Errorf("Enriched payload failed validation: %+v", validation.Issues)
	}
}
