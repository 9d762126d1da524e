package engine

import "fmt"

// ContentPayload is the tagged-variant content produced by a worker for one
// sub-unit. Kind selects which variant field is populated; kind-specific
// structural rules are dispatched through a lookup table rather than
// reflection.
type ContentPayload struct {
	// Kind is the mechanic type tag this payload was generated for.
	Kind string `json:"kind"`

	// Items are the generated content items, common to all kinds.
	Items []ContentItem `json:"items"`

	// Ordering is populated for sequencing payloads.
	Ordering *OrderingContent `json:"ordering,omitempty"`

	// Branching is populated for branching payloads.
	Branching *BranchingContent `json:"branching,omitempty"`

	// Pairs is populated for matching payloads.
	Pairs []MatchPair `json:"pairs,omitempty"`
}

// ContentItem is one generated content item.
type ContentItem struct {
	// ID identifies the item within its payload.
	ID string `json:"id"`

	// Prompt is the player-facing prompt text.
	Prompt string `json:"prompt"`

	// Answer is the expected answer or classification, if applicable.
	Answer string `json:"answer,omitempty"`
}

// OrderingContent declares the correct order for a sequencing payload.
// Order must be a permutation of the payload's item ids.
type OrderingContent struct {
	Order []string `json:"order"`
}

// BranchingContent declares the node graph for a branching payload.
// StartNode must exist among Nodes and every terminal node must be
// reachable from the start node via forward edges.
type BranchingContent struct {
	StartNode string       `json:"start_node"`
	Nodes     []BranchNode `json:"nodes"`
}

// BranchNode is one node of a branching payload.
type BranchNode struct {
	// ID identifies the node.
	ID string `json:"id"`

	// Terminal marks an ending node.
	Terminal bool `json:"terminal"`

	// Next lists the ids of nodes reachable from this one.
	Next []string `json:"next,omitempty"`
}

// MatchPair is one left/right pairing for a matching payload.
type MatchPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// contentRule checks kind-specific structural rules for a payload and
// appends every issue found (never short-circuits).
type contentRule func(payload *ContentPayload, sub PlannedSubUnit, issues []ValidationIssue) []ValidationIssue

// contentRules maps mechanic kinds to their structural validators.
var contentRules = map[string]contentRule{
	"sequencing": validateOrderingContent,
	"branching":  validateBranchingContent,
	"matching":   validateMatchingContent,
	"drag_drop":  validateItemAnswers,
	"quiz":       validateItemAnswers,
}

func validateOrderingContent(payload *ContentPayload, sub PlannedSubUnit, issues []ValidationIssue) []ValidationIssue {
	if payload.Ordering == nil {
		return append(issues, ValidationIssue{
			Severity:  SeverityError,
			Message:   "sequencing payload missing ordering",
			FieldPath: "payload.ordering",
			Key:       sub.ID,
		})
	}

	// The declared order must be a permutation of the declared items.
	itemIDs := make(map[string]int, len(payload.Items))
	for _, item := range payload.Items {
		itemIDs[item.ID]++
	}
	orderIDs := make(map[string]int, len(payload.Ordering.Order))
	for _, id := range payload.Ordering.Order {
		orderIDs[id]++
		if itemIDs[id] == 0 {
			issues = append(issues, ValidationIssue{
				Severity:  SeverityError,
				Message:   fmt.Sprintf("order references unknown item %q", id),
				FieldPath: "payload.ordering.order",
				Key:       sub.ID,
			})
		}
		if orderIDs[id] > 1 {
			issues = append(issues, ValidationIssue{
				Severity:  SeverityError,
				Message:   fmt.Sprintf("order repeats item %q", id),
				FieldPath: "payload.ordering.order",
				Key:       sub.ID,
			})
		}
	}
	for _, item := range payload.Items {
		if orderIDs[item.ID] == 0 {
			issues = append(issues, ValidationIssue{
				Severity:  SeverityError,
				Message:   fmt.Sprintf("item %q missing from order", item.ID),
				FieldPath: "payload.ordering.order",
				Key:       sub.ID,
			})
		}
	}
	return issues
}

func validateBranchingContent(payload *ContentPayload, sub PlannedSubUnit, issues []ValidationIssue) []ValidationIssue {
	if payload.Branching == nil {
		return append(issues, ValidationIssue{
			Severity:  SeverityError,
			Message:   "branching payload missing node graph",
			FieldPath: "payload.branching",
			Key:       sub.ID,
		})
	}

	b := payload.Branching
	nodes := make(map[string]*BranchNode, len(b.Nodes))
	for i := range b.Nodes {
		nodes[b.Nodes[i].ID] = &b.Nodes[i]
	}

	if _, ok := nodes[b.StartNode]; !ok {
		issues = append(issues, ValidationIssue{
			Severity:  SeverityError,
			Message:   fmt.Sprintf("start node %q does not exist", b.StartNode),
			FieldPath: "payload.branching.start_node",
			Key:       sub.ID,
		})
		return issues
	}

	for _, node := range b.Nodes {
		for _, next := range node.Next {
			if _, ok := nodes[next]; !ok {
				issues = append(issues, ValidationIssue{
					Severity:  SeverityError,
					Message:   fmt.Sprintf("node %q links to unknown node %q", node.ID, next),
					FieldPath: "payload.branching.nodes",
					Key:       sub.ID,
				})
			}
		}
	}

	// Every terminal node must be reachable from the start node via
	// forward edges. Reuses the same three-color traversal the plan
	// validator uses for cycle checks.
	reachable := make(map[string]bool, len(nodes))
	var adjacency = func(id string) []string {
		if n, ok := nodes[id]; ok {
			return n.Next
		}
		return nil
	}
	traverseColored(b.StartNode, adjacency, func(id string) { reachable[id] = true }, nil)

	for _, node := range b.Nodes {
		if node.Terminal && !reachable[node.ID] {
			issues = append(issues, ValidationIssue{
				Severity:  SeverityError,
				Message:   fmt.Sprintf("terminal node %q unreachable from start node %q", node.ID, b.StartNode),
				FieldPath: "payload.branching.nodes",
				Key:       sub.ID,
			})
		}
	}
	return issues
}

func validateMatchingContent(payload *ContentPayload, sub PlannedSubUnit, issues []ValidationIssue) []ValidationIssue {
	if len(payload.Pairs) == 0 {
		return append(issues, ValidationIssue{
			Severity:  SeverityError,
			Message:   "matching payload has no pairs",
			FieldPath: "payload.pairs",
			Key:       sub.ID,
		})
	}
	for i, pair := range payload.Pairs {
		if pair.Left == "" || pair.Right == "" {
			issues = append(issues, ValidationIssue{
				Severity:  SeverityError,
				Message:   fmt.Sprintf("pair %d has an empty side", i),
				FieldPath: "payload.pairs",
				Key:       sub.ID,
			})
		}
	}
	return issues
}

func validateItemAnswers(payload *ContentPayload, sub PlannedSubUnit, issues []ValidationIssue) []ValidationIssue {
	for _, item := range payload.Items {
		if item.Answer == "" {
			issues = append(issues, ValidationIssue{
				Severity:  SeverityError,
				Message:   fmt.Sprintf("item %q has no answer", item.ID),
				FieldPath: "payload.items",
				Key:       sub.ID,
			})
		}
	}
	return issues
}
