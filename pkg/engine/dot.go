package engine

import (
	"fmt"
	"strings"
)

// ToDOT renders the plan's unit/sub-unit graph in DOT format for
// visualization. The output can be rendered with Graphviz tools: each
// unit becomes a cluster, sub-units are nodes, and connections are edges
// labelled with their advance trigger.
func ToDOT(plan *ExecutionPlan) string {
	var sb strings.Builder

	sb.WriteString("digraph ExecutionPlan {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box, style=rounded];\n\n")

	for i, unit := range plan.Units {
		sb.WriteString(fmt.Sprintf("  subgraph cluster_%d {\n", i))
		sb.WriteString(fmt.Sprintf("    label=%q;\n", unit.Title))
		sb.WriteString("    style=dashed;\n")

		for _, sub := range unit.SubUnits {
			label := fmt.Sprintf("%s\\n%s (%d pts)", sub.ID, sub.Kind, sub.MaxScore)
			color := kindColor(sub.Kind)
			sb.WriteString(fmt.Sprintf("    \"%s\" [label=\"%s\", fillcolor=\"%s\", style=\"filled,rounded\"];\n",
				sub.ID, label, color))
		}

		sb.WriteString("  }\n\n")
	}

	for _, unit := range plan.Units {
		for _, conn := range unit.Connections {
			label := string(conn.Trigger)
			if conn.TriggerValue != "" {
				label = fmt.Sprintf("%s=%s", conn.Trigger, conn.TriggerValue)
			}
			sb.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [label=%q];\n",
				conn.From, conn.To, label))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

func kindColor(kind string) string {
	switch kind {
	case "drag_drop":
		return "lightblue"
	case "sequencing":
		return "lightyellow"
	case "branching":
		return "lightcoral"
	case "matching":
		return "lightgreen"
	case "quiz":
		return "plum"
	default:
		return "lightgray"
	}
}
