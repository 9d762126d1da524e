package engine

import (
	"fmt"
	"strings"

	"github.com/ShivenA99/GamED-AI-sub004/pkg/concept"
)

// Compiler deterministically transforms a concept plus its design layer
// into an execution plan. It performs no I/O and makes no external calls:
// identical inputs always produce an identical plan.
type Compiler struct {
	// triggerTable resolves timing hints to advance triggers.
	triggerTable map[string]Trigger
}

// NewCompiler creates a compiler with the given hint-to-trigger lookup.
// A nil table falls back to DefaultTriggerTable.
func NewCompiler(triggerTable map[string]Trigger) *Compiler {
	if triggerTable == nil {
		triggerTable = DefaultTriggerTable()
	}
	return &Compiler{triggerTable: triggerTable}
}

// Compile resolves a concept into an execution plan. Unit ids are assigned
// by 1-based position ("unit_<n>"), sub-unit ids within each unit by
// 1-based position ("unit_<n>_item_<m>"). Missing designs are synthesized,
// never fatal; compilation fails only on malformed input.
func (c *Compiler) Compile(con *concept.Concept, designs map[string]concept.SceneDesign) (*ExecutionPlan, error) {
	if con == nil || len(con.Scenes) == 0 {
		return nil, NewInputError("concept has no scenes", nil).WithCode(ErrCodeEmptyConcept)
	}

	plan := &ExecutionPlan{
		Title:      con.Title,
		Subject:    con.Subject,
		Difficulty: con.Difficulty,
		Vocabulary: con.Vocabulary,
		Units:      make([]PlannedUnit, 0, len(con.Scenes)),
	}

	for i, scene := range con.Scenes {
		unitID := fmt.Sprintf("unit_%d", i+1)

		if len(scene.Mechanics) == 0 {
			return nil, NewInputError(
				fmt.Sprintf("scene %q has no mechanic choices", scene.Title), nil).
				WithCode(ErrCodeEmptyScene).WithKey(UnitKey(unitID))
		}

		design, hasDesign := designs[unitID]

		unit := PlannedUnit{
			ID:              unitID,
			Title:           scene.Title,
			Vocabulary:      scene.Vocabulary,
			NeedsEnrichment: scene.NeedsEnrichment,
			SubUnits:        make([]PlannedSubUnit, 0, len(scene.Mechanics)),
		}
		if hasDesign {
			unit.Theme = design.Theme
		}

		for j, choice := range scene.Mechanics {
			if choice.ExpectedItemCount <= 0 || choice.PointsPerItem <= 0 {
				return nil, NewInputError(
					fmt.Sprintf("scene %q mechanic %d has non-positive count or points", scene.Title, j+1), nil).
					WithCode(ErrCodeBadItemCount).WithKey(UnitKey(unitID))
			}

			sub := PlannedSubUnit{
				ID:                UnitKey(fmt.Sprintf("%s_item_%d", unitID, j+1)),
				UnitID:            unitID,
				Kind:              string(choice.Kind),
				ExpectedItemCount: choice.ExpectedItemCount,
				PointsPerItem:     choice.PointsPerItem,
				MaxScore:          choice.ExpectedItemCount * choice.PointsPerItem,
				IsTerminal:        j == len(scene.Mechanics)-1,
				AdvanceTrigger:    c.resolveTrigger(choice.TimingHint),
				TriggerValue:      choice.TimingValue,
				ScopeMode:         string(choice.ScopeMode),
				Scope:             choice.Scope,
				Status:            SubUnitPending,
			}

			md := alignMechanicDesign(design, j, choice.Kind, hasDesign)
			sub.Styling = md.Styling
			sub.Instructions = md.Instructions

			unit.UnitMaxScore += sub.MaxScore
			unit.SubUnits = append(unit.SubUnits, sub)
		}

		unit.Connections = buildConnections(unit.SubUnits)
		plan.TotalMaxScore += unit.UnitMaxScore
		plan.Units = append(plan.Units, unit)
	}

	return plan, nil
}

// resolveTrigger maps a timing hint through the lookup table; unknown
// hints fall back to the completion trigger.
func (c *Compiler) resolveTrigger(hint string) Trigger {
	if hint == "" {
		return TriggerCompletion
	}
	if trigger, ok := c.triggerTable[hint]; ok {
		return trigger
	}
	return TriggerCompletion
}

// alignMechanicDesign aligns a design entry to a mechanic choice, first by
// index, then by kind, synthesizing a placeholder when the design layer
// does not cover the mechanic.
func alignMechanicDesign(design concept.SceneDesign, idx int, kind concept.MechanicKind, hasDesign bool) concept.MechanicDesign {
	if hasDesign {
		if idx < len(design.Mechanics) {
			md := design.Mechanics[idx]
			if md.Kind == "" || md.Kind == kind {
				return fillDesignDefaults(md, kind)
			}
		}
		for _, md := range design.Mechanics {
			if md.Kind == kind {
				return fillDesignDefaults(md, kind)
			}
		}
	}
	return synthesizeDesign(kind)
}

func fillDesignDefaults(md concept.MechanicDesign, kind concept.MechanicKind) concept.MechanicDesign {
	if md.Styling == "" {
		md.Styling = "default"
	}
	if md.Instructions == "" {
		md.Instructions = defaultInstructions(kind)
	}
	return md
}

// synthesizeDesign produces the minimal placeholder design used when no
// design entry exists for a mechanic.
func synthesizeDesign(kind concept.MechanicKind) concept.MechanicDesign {
	return concept.MechanicDesign{
		Kind:         kind,
		Styling:      "default",
		Instructions: defaultInstructions(kind),
	}
}

func defaultInstructions(kind concept.MechanicKind) string {
	return fmt.Sprintf("Complete the %s challenge.", strings.ReplaceAll(string(kind), "_", " "))
}

// buildConnections pairs consecutive sub-units: sub-unit i connects to
// sub-unit i+1. List order cannot cycle, which is what keeps compiled
// plans cycle-free.
func buildConnections(subUnits []PlannedSubUnit) []Connection {
	if len(subUnits) < 2 {
		return nil
	}
	conns := make([]Connection, 0, len(subUnits)-1)
	for i := 0; i < len(subUnits)-1; i++ {
		conns = append(conns, Connection{
			From:         subUnits[i].ID,
			To:           subUnits[i+1].ID,
			Trigger:      subUnits[i].AdvanceTrigger,
			TriggerValue: subUnits[i].TriggerValue,
		})
	}
	return conns
}
