package engine

import (
	"reflect"
	"testing"
)

func failingValidation(keys ...UnitKey) ValidationResult {
	var issues []ValidationIssue
	for _, key := range keys {
		issues = append(issues, ValidationIssue{Severity: SeverityError, Message: "bad content", Key: key})
	}
	return ValidationResult{Passed: false, Issues: issues}
}

func TestRoute_PassedAdvances(t *testing.T) {
	decision := Route(ValidationResult{Passed: true}, 0, 2)

	if decision.Kind != RouteAdvance {
		t.Errorf("Expected advance, got %s", decision.Kind)
	}
	if decision.Degraded {
		t.Error("Expected clean advance, got degraded")
	}
}

func TestRoute_NarrowsToFailedKeys(t *testing.T) {
	validation := failingValidation("unit_1_item_3", "unit_1_item_1", "unit_1_item_3")
	validation.Issues = append(validation.Issues, ValidationIssue{
		Severity: SeverityWarning, Message: "cosmetic", Key: "unit_1_item_2",
	})

	decision := Route(validation, 0, 2)

	if decision.Kind != RouteRetry {
		t.Fatalf("Expected retry, got %s", decision.Kind)
	}
	// Deduplicated, sorted, warnings excluded.
	if !reflect.DeepEqual(decision.Keys, []UnitKey{"unit_1_item_1", "unit_1_item_3"}) {
		t.Errorf("Unexpected retry keys: %v", decision.Keys)
	}
}

func TestRoute_BudgetExhaustedDegrades(t *testing.T) {
	decision := Route(failingValidation("unit_1_item_1"), 2, 2)

	if decision.Kind != RouteAdvance {
		t.Errorf("Expected degraded advance, got %s", decision.Kind)
	}
	if !decision.Degraded {
		t.Error("Expected degraded flag on budget exhaustion")
	}
}

func TestRoute_UnattributableErrorsDegrade(t *testing.T) {
	validation := ValidationResult{Issues: []ValidationIssue{
		{Severity: SeverityError, Message: "plan is nil"},
	}}

	decision := Route(validation, 0, 2)

	if decision.Kind != RouteAdvance || !decision.Degraded {
		t.Error("Expected degraded advance for errors with no unit attribution")
	}
}

func TestRoute_Terminates(t *testing.T) {
	// A persistently failing validation must reach advance within
	// maxRetries rounds.
	validation := failingValidation("unit_1_item_1")
	maxRetries := 3

	rounds := 0
	for retry := 0; ; retry++ {
		decision := Route(validation, retry, maxRetries)
		if decision.Kind == RouteAdvance {
			if !decision.Degraded {
				t.Error("Expected degraded advance after exhausting the budget")
			}
			break
		}
		rounds++
		if rounds > maxRetries {
			t.Fatal("Route never advanced")
		}
	}

	if rounds != maxRetries {
		t.Errorf("Expected exactly %d retry rounds, got %d", maxRetries, rounds)
	}
}
