// Package worker provides the built-in deterministic content generator.
// It stands in for model-backed generation workers in local runs and
// tests: the same sub-unit always yields the same payload.
package worker

import (
	"context"
	"fmt"

	"github.com/ShivenA99/GamED-AI-sub004/pkg/engine"
)

// Generator produces placeholder content for every mechanic kind. The
// zero value is usable.
type Generator struct{}

// NewGenerator creates a Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate builds a payload for the sub-unit's mechanic kind. Content is
// derived from the sub-unit's scope, falling back to the scene vocabulary
// and then to synthesized terms, so generated payloads always satisfy the
// structural content rules.
func (g *Generator) Generate(_ context.Context, shared engine.SharedContext, sub engine.PlannedSubUnit) engine.WorkerResult {
	terms := g.terms(shared, sub)
	items := make([]engine.ContentItem, sub.ExpectedItemCount)
	for i := range items {
		items[i] = engine.ContentItem{
			ID:     fmt.Sprintf("%s_c%d", sub.ID, i+1),
			Prompt: fmt.Sprintf("Identify %q", terms[i]),
			Answer: terms[i],
		}
	}

	payload := &engine.ContentPayload{Kind: sub.Kind, Items: items}
	switch sub.Kind {
	case "sequencing":
		order := make([]string, len(items))
		for i, item := range items {
			order[i] = item.ID
		}
		payload.Ordering = &engine.OrderingContent{Order: order}

	case "branching":
		nodes := make([]engine.BranchNode, len(items))
		for i, item := range items {
			nodes[i] = engine.BranchNode{ID: item.ID}
			if i+1 < len(items) {
				nodes[i].Next = []string{items[i+1].ID}
			} else {
				nodes[i].Terminal = true
			}
		}
		payload.Branching = &engine.BranchingContent{
			StartNode: items[0].ID,
			Nodes:     nodes,
		}

	case "matching":
		pairs := make([]engine.MatchPair, len(items))
		for i := range items {
			pairs[i] = engine.MatchPair{
				Left:  terms[i],
				Right: fmt.Sprintf("definition of %s", terms[i]),
			}
		}
		payload.Pairs = pairs
	}

	return engine.WorkerResult{
		Key:     sub.ID,
		Status:  engine.ResultSuccess,
		Payload: payload,
	}
}

// Enrich regenerates the sub-unit's payload with embellished prompts.
func (g *Generator) Enrich(ctx context.Context, shared engine.SharedContext, sub engine.PlannedSubUnit) engine.WorkerResult {
	result := g.Generate(ctx, shared, sub)
	if result.Payload == nil {
		return result
	}
	for i := range result.Payload.Items {
		item := &result.Payload.Items[i]
		item.Prompt = fmt.Sprintf("%s (theme: %s)", item.Prompt, shared.SceneTitle)
	}
	return result
}

// terms picks the content source terms for a sub-unit, padded to the
// expected item count.
func (g *Generator) terms(shared engine.SharedContext, sub engine.PlannedSubUnit) []string {
	source := sub.Scope
	if len(source) == 0 {
		source = shared.SceneVocabulary
	}
	terms := make([]string, sub.ExpectedItemCount)
	for i := range terms {
		if i < len(source) {
			terms[i] = source[i]
		} else {
			terms[i] = fmt.Sprintf("%s term %d", shared.Subject, i+1)
		}
	}
	return terms
}
