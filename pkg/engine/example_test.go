package engine_test

import (
	"context"
	"fmt"

	"github.com/ShivenA99/GamED-AI-sub004/pkg/concept"
	"github.com/ShivenA99/GamED-AI-sub004/pkg/engine"
)

// Example_pipeline demonstrates how the core stages compose into a run:
// compile, validate, dispatch, merge and route.
func Example_pipeline() {
	// 1. A concept describes the desired scenes and mechanics.
	con := &concept.Concept{
		Title:      "Fraction Frenzy",
		Subject:    "math",
		Vocabulary: []string{"half", "quarter"},
		Scenes: []concept.SceneConcept{
			{
				Title:      "Pizza Party",
				Vocabulary: []string{"half", "quarter"},
				Mechanics: []concept.MechanicChoice{
					{
						Kind:              concept.MechanicQuiz,
						ExpectedItemCount: 2,
						PointsPerItem:     5,
						ScopeMode:         concept.ScopeBound,
						Scope:             []string{"half", "quarter"},
					},
				},
			},
		},
	}

	// 2. Compile it into a deterministic execution plan.
	plan, err := engine.NewCompiler(nil).Compile(con, nil)
	if err != nil {
		panic(err)
	}
	fmt.Println("max score:", plan.TotalMaxScore)

	// 3. Validate the plan before any dispatch.
	validation := engine.ValidatePlan(plan)
	fmt.Println("plan valid:", validation.Passed)

	// 4. Run the plan through the sequencer with a worker.
	worker := func(_ context.Context, _ engine.SharedContext, sub engine.PlannedSubUnit) engine.WorkerResult {
		items := make([]engine.ContentItem, sub.ExpectedItemCount)
		for i := range items {
			items[i] = engine.ContentItem{
				ID:     fmt.Sprintf("%s_c%d", sub.ID, i+1),
				Prompt: fmt.Sprintf("Which is bigger, option %d?", i+1),
				Answer: sub.Scope[i],
			}
		}
		return engine.WorkerResult{
			Key:     sub.ID,
			Status:  engine.ResultSuccess,
			Payload: &engine.ContentPayload{Kind: sub.Kind, Items: items},
		}
	}

	seq := engine.NewSequencer(engine.Options{}, worker, engine.Deps{})
	outcome, err := seq.Run(context.Background(), con, nil)
	if err != nil {
		panic(err)
	}
	fmt.Println("degraded:", outcome.Degraded)
	fmt.Println("succeeded:", outcome.Summary.Succeeded)

	// Output:
	// max score: 10
	// plan valid: true
	// degraded: false
	// succeeded: 1
}
