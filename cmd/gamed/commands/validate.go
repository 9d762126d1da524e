package commands

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ShivenA99/GamED-AI-sub004/pkg/engine"
)

func newValidateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate <concept.yaml>",
		Short: "Validate a concept's compiled plan",
		Long: `Compile a concept and run the full structural validation pass.

This command checks:
  - Vocabulary scope integrity at the global and scene level
  - Scope mode consistency on every mechanic
  - Connection endpoint existence and cycle freedom
  - Score and item count sanity`,
		Example: `  # Validate a concept
  gamed validate concept.yaml

  # Treat warnings as failures
  gamed validate concept.yaml --strict`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := compilePlan(args[0])
			if err != nil {
				return err
			}

			validation := engine.ValidatePlan(plan)
			if jsonOutput {
				out, err := json.MarshalIndent(validation, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode validation result: %w", err)
				}
				fmt.Println(string(out))
			} else {
				printIssues(validation.Issues)
			}

			if !validation.Passed {
				return fmt.Errorf("validation failed with %d error(s)", len(validation.Errors()))
			}
			if strict && len(validation.Warnings()) > 0 {
				return fmt.Errorf("validation produced %d warning(s) in strict mode", len(validation.Warnings()))
			}

			log.Info().Int("units", len(plan.Units)).Int("max_score", plan.TotalMaxScore).
				Msg("Plan is valid")
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as failures")

	return cmd
}

func printIssues(issues []engine.ValidationIssue) {
	for _, issue := range issues {
		event := log.Warn()
		if issue.Severity == engine.SeverityError {
			event = log.Error()
		}
		if issue.Key != "" {
			event = event.Str("key", string(issue.Key))
		}
		if issue.FieldPath != "" {
			event = event.Str("field", issue.FieldPath)
		}
		event.Msg(issue.Message)
	}
}
