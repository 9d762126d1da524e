package engine

import (
	"fmt"
)

// The validation engine is a set of pure functions over plans, unit content
// and assembled artifacts. Each function walks its whole input and reports
// every issue found; it never short-circuits on the first error, so callers
// always get a complete diagnostic list.

type dfsColor uint8

const (
	colorWhite dfsColor = iota
	colorGray
	colorBlack
)

// traverseColoredFrom walks the graph from start using white/gray/black
// coloring. visit fires on first entry to a node; backEdge fires on a
// gray-to-gray edge, which signals a cycle.
func traverseColoredFrom(
	colors map[string]dfsColor,
	start string,
	next func(string) []string,
	visit func(string),
	backEdge func(from, to string),
) {
	if colors[start] != colorWhite {
		return
	}
	var walk func(id string)
	walk = func(id string) {
		colors[id] = colorGray
		if visit != nil {
			visit(id)
		}
		for _, n := range next(id) {
			switch colors[n] {
			case colorWhite:
				walk(n)
			case colorGray:
				if backEdge != nil {
					backEdge(id, n)
				}
			}
		}
		colors[id] = colorBlack
	}
	walk(start)
}

// traverseColored runs a single-source colored traversal with fresh colors.
func traverseColored(start string, next func(string) []string, visit func(string), backEdge func(from, to string)) {
	traverseColoredFrom(make(map[string]dfsColor), start, next, visit, backEdge)
}

// ValidatePlan checks a compiled plan's structural and referential
// invariants: two-level scope resolution (mechanic scope within scene
// vocabulary, scene vocabulary within the concept's global vocabulary),
// the scope-bound/scope-free mutual exclusion, connection endpoint
// integrity, and cycle freedom of each unit's connection graph.
func ValidatePlan(plan *ExecutionPlan) ValidationResult {
	var issues []ValidationIssue
	if plan == nil {
		return ValidationResult{Issues: []ValidationIssue{{
			Severity: SeverityError,
			Message:  "plan is nil",
		}}}
	}

	globalVocab := toSet(plan.Vocabulary)

	for ui, unit := range plan.Units {
		unitPath := fmt.Sprintf("units[%d]", ui)

		// Scene vocabulary must resolve within the global vocabulary.
		for _, entry := range unit.Vocabulary {
			if !globalVocab[entry] {
				issues = append(issues, ValidationIssue{
					Severity:  SeverityError,
					Message:   fmt.Sprintf("scene vocabulary entry %q not in global vocabulary", entry),
					FieldPath: unitPath + ".vocabulary",
					Key:       UnitKey(unit.ID),
				})
			}
		}

		sceneVocab := toSet(unit.Vocabulary)
		usedVocab := make(map[string]bool, len(sceneVocab))
		subIDs := make(map[UnitKey]bool, len(unit.SubUnits))

		for si, sub := range unit.SubUnits {
			subPath := fmt.Sprintf("%s.sub_units[%d]", unitPath, si)
			subIDs[sub.ID] = true

			// Mechanic scope must resolve within the scene vocabulary.
			for _, entry := range sub.Scope {
				usedVocab[entry] = true
				if !sceneVocab[entry] {
					issues = append(issues, ValidationIssue{
						Severity:  SeverityError,
						Message:   fmt.Sprintf("scope entry %q not in scene vocabulary", entry),
						FieldPath: subPath + ".scope",
						Key:       sub.ID,
					})
				}
			}

			// Scope-bound and scope-free are mutually exclusive invariants.
			switch sub.ScopeMode {
			case "scope_bound":
				if len(sub.Scope) == 0 {
					issues = append(issues, ValidationIssue{
						Severity:  SeverityError,
						Message:   "scope-bound mechanic has an empty scope list",
						FieldPath: subPath + ".scope",
						Key:       sub.ID,
					})
				}
			case "scope_free":
				if len(sub.Scope) > 0 {
					issues = append(issues, ValidationIssue{
						Severity:  SeverityError,
						Message:   "scope-free mechanic carries a scope list",
						FieldPath: subPath + ".scope",
						Key:       sub.ID,
					})
				}
			}
		}

		// Declared-but-unused scene vocabulary is a quality signal only.
		for _, entry := range unit.Vocabulary {
			if !usedVocab[entry] {
				issues = append(issues, ValidationIssue{
					Severity:  SeverityWarning,
					Message:   fmt.Sprintf("scene vocabulary entry %q unused by any mechanic", entry),
					FieldPath: unitPath + ".vocabulary",
					Key:       UnitKey(unit.ID),
				})
			}
		}

		issues = validateUnitConnections(unit, unitPath, subIDs, issues)
	}

	return ValidationResult{Passed: !hasErrors(issues), Issues: issues}
}

// validateUnitConnections checks endpoint integrity and cycle freedom of a
// single unit's connection graph.
func validateUnitConnections(unit PlannedUnit, unitPath string, subIDs map[UnitKey]bool, issues []ValidationIssue) []ValidationIssue {
	adjacency := make(map[string][]string, len(unit.SubUnits))

	for ci, conn := range unit.Connections {
		connPath := fmt.Sprintf("%s.connections[%d]", unitPath, ci)
		ok := true
		if !subIDs[conn.From] {
			issues = append(issues, ValidationIssue{
				Severity:  SeverityError,
				Message:   fmt.Sprintf("connection source %q does not exist in unit %s", conn.From, unit.ID),
				FieldPath: connPath,
				Key:       UnitKey(unit.ID),
			})
			ok = false
		}
		if !subIDs[conn.To] {
			issues = append(issues, ValidationIssue{
				Severity:  SeverityError,
				Message:   fmt.Sprintf("connection target %q does not exist in unit %s", conn.To, unit.ID),
				FieldPath: connPath,
				Key:       UnitKey(unit.ID),
			})
			ok = false
		}
		if ok {
			adjacency[string(conn.From)] = append(adjacency[string(conn.From)], string(conn.To))
		}
	}

	// Three-color DFS over the connection graph; a gray-to-gray back edge
	// signals a cycle, reported with the two offending sub-unit ids.
	colors := make(map[string]dfsColor, len(unit.SubUnits))
	next := func(id string) []string { return adjacency[id] }
	for _, sub := range unit.SubUnits {
		traverseColoredFrom(colors, string(sub.ID), next, nil, func(from, to string) {
			issues = append(issues, ValidationIssue{
				Severity:  SeverityError,
				Message:   fmt.Sprintf("connection cycle between %s and %s", from, to),
				FieldPath: unitPath + ".connections",
				Key:       UnitKey(unit.ID),
			})
		})
	}

	return issues
}

// ValidateUnitContent checks a worker payload against its planned sub-unit:
// item-count parity with the declared expectation plus the kind-specific
// structural rules from the content rule table.
func ValidateUnitContent(payload *ContentPayload, sub PlannedSubUnit) ValidationResult {
	var issues []ValidationIssue

	if payload == nil {
		issues = append(issues, ValidationIssue{
			Severity:  SeverityError,
			Message:   "no content payload produced",
			FieldPath: "payload",
			Key:       sub.ID,
		})
		return ValidationResult{Issues: issues}
	}

	if payload.Kind != "" && payload.Kind != sub.Kind {
		issues = append(issues, ValidationIssue{
			Severity:  SeverityError,
			Message:   fmt.Sprintf("payload kind %q does not match planned kind %q", payload.Kind, sub.Kind),
			FieldPath: "payload.kind",
			Key:       sub.ID,
		})
	}

	if len(payload.Items) != sub.ExpectedItemCount {
		issues = append(issues, ValidationIssue{
			Severity:  SeverityError,
			Message:   fmt.Sprintf("expected %d items, payload has %d", sub.ExpectedItemCount, len(payload.Items)),
			FieldPath: "payload.items",
			Key:       sub.ID,
		})
	}

	if rule, ok := contentRules[sub.Kind]; ok {
		issues = rule(payload, sub, issues)
	}

	return ValidationResult{Passed: !hasErrors(issues), Issues: issues}
}

// ValidateAssembled checks the final plan/result pairing before it is
// handed to downstream assembly: every planned sub-unit must have a result
// and every successful result must carry a payload.
func ValidateAssembled(artifact *AssembledArtifact) ValidationResult {
	var issues []ValidationIssue
	if artifact == nil || artifact.Plan == nil {
		return ValidationResult{Issues: []ValidationIssue{{
			Severity: SeverityError,
			Message:  "artifact has no plan",
		}}}
	}

	known := make(map[UnitKey]bool)
	for _, unit := range artifact.Plan.Units {
		for _, sub := range unit.SubUnits {
			known[sub.ID] = true
			result, ok := artifact.Results[sub.ID]
			if !ok {
				issues = append(issues, ValidationIssue{
					Severity: SeverityError,
					Message:  "sub-unit has no result",
					Key:      sub.ID,
				})
				continue
			}
			if result.Status == ResultSuccess && result.Payload == nil {
				issues = append(issues, ValidationIssue{
					Severity: SeverityError,
					Message:  "successful result carries no payload",
					Key:      sub.ID,
				})
			}
			if result.Status == ResultFailure {
				issues = append(issues, ValidationIssue{
					Severity: SeverityError,
					Message:  fmt.Sprintf("sub-unit failed: %s", result.Error),
					Key:      sub.ID,
				})
			}
		}
	}

	for key := range artifact.Results {
		if !known[key] {
			issues = append(issues, ValidationIssue{
				Severity: SeverityWarning,
				Message:  "result for unknown sub-unit",
				Key:      key,
			})
		}
	}

	return ValidationResult{Passed: !hasErrors(issues), Issues: issues}
}

func hasErrors(issues []ValidationIssue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

func toSet(entries []string) map[string]bool {
	set := make(map[string]bool, len(entries))
	for _, e := range entries {
		set[e] = true
	}
	return set
}
