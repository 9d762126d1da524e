package engine

// RouteKind is the retry router's verdict.
type RouteKind string

const (
	// RouteAdvance moves the sequencer to the next phase.
	RouteAdvance RouteKind = "advance"

	// RouteRetry re-dispatches a narrowed subset of failed units.
	RouteRetry RouteKind = "retry"
)

// RouteDecision is either an advance or a narrowed re-dispatch set.
// Degraded is set when the router advances past unresolved errors because
// the retry budget ran out.
type RouteDecision struct {
	Kind     RouteKind `json:"kind"`
	Keys     []UnitKey `json:"keys,omitempty"`
	Degraded bool      `json:"degraded,omitempty"`
}

// Route decides whether to re-dispatch or advance. A passing validation
// always advances. A failing one retries on exactly the keys referenced by
// error-severity issues, never the whole plan, until the budget is spent;
// after that the run advances degraded rather than failing outright.
func Route(validation ValidationResult, retryCount, maxRetries int) RouteDecision {
	if validation.Passed {
		return RouteDecision{Kind: RouteAdvance}
	}

	if retryCount >= maxRetries {
		return RouteDecision{Kind: RouteAdvance, Degraded: true}
	}

	keys := failedKeys(validation)
	if len(keys) == 0 {
		// Errors with no unit attribution cannot be narrowed, so a
		// re-dispatch would change nothing. Advance degraded.
		return RouteDecision{Kind: RouteAdvance, Degraded: true}
	}

	return RouteDecision{Kind: RouteRetry, Keys: keys}
}

// failedKeys extracts the deduplicated, sorted unit keys referenced by
// error-severity issues.
func failedKeys(validation ValidationResult) []UnitKey {
	seen := make(map[UnitKey]bool)
	var keys []UnitKey
	for _, issue := range validation.Issues {
		if issue.Severity != SeverityError || issue.Key == "" {
			continue
		}
		if !seen[issue.Key] {
			seen[issue.Key] = true
			keys = append(keys, issue.Key)
		}
	}
	sortKeys(keys)
	return keys
}
