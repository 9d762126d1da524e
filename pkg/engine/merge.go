package engine

import "sort"

// Reduce folds the full accumulated result list into a mapping keyed by
// unit key, where later list entries overwrite earlier ones for the same
// key. Last-write-wins by arrival order is what makes retries safe: a
// failed attempt from round one is superseded by a successful attempt from
// round two without any explicit bookkeeping. The fold is pure; calling it
// twice on the same input yields the same accumulator.
func Reduce(accumulated []WorkerResult) MergeAccumulator {
	acc := MergeAccumulator{
		Latest: make(map[UnitKey]WorkerResult, len(accumulated)),
	}

	for _, result := range accumulated {
		acc.Latest[result.Key] = result
	}

	for key, result := range acc.Latest {
		if result.Status == ResultSuccess {
			acc.SuccessKeys = append(acc.SuccessKeys, key)
		} else {
			acc.FailureKeys = append(acc.FailureKeys, key)
		}
	}
	sortKeys(acc.SuccessKeys)
	sortKeys(acc.FailureKeys)

	return acc
}

// ApplyToPlan writes the accumulator's outcome back into the plan's
// sub-unit statuses and payloads. This is the only place plan state is
// mutated after compilation.
func (acc MergeAccumulator) ApplyToPlan(plan *ExecutionPlan) {
	if plan == nil {
		return
	}
	for ui := range plan.Units {
		unit := &plan.Units[ui]
		for si := range unit.SubUnits {
			sub := &unit.SubUnits[si]
			result, ok := acc.Latest[sub.ID]
			if !ok {
				continue
			}
			if result.Status == ResultSuccess {
				sub.Status = SubUnitSucceeded
				sub.Payload = result.Payload
			} else {
				sub.Status = SubUnitFailed
			}
		}
	}
}

func sortKeys(keys []UnitKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
}
