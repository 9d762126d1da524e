package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ShivenA99/GamED-AI-sub004/pkg/concept"
	"github.com/ShivenA99/GamED-AI-sub004/pkg/engine"
)

func newCompileCommand() *cobra.Command {
	var (
		dotOutput  bool
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "compile <concept.yaml>",
		Short: "Compile a concept into an execution plan",
		Long: `Compile a game concept into a deterministic execution plan.

The plan resolves every scene mechanic into a dispatch-ready sub-unit with
formulaic identifiers, score totals, advance triggers and connections.
Compilation is pure: the same concept and designs always produce the same
plan.`,
		Example: `  # Compile and print the plan as JSON
  gamed compile concept.yaml

  # Compile with a designs overlay
  gamed compile concept.yaml --designs designs.yaml

  # Render the plan graph for Graphviz
  gamed compile concept.yaml --dot | dot -Tsvg -o plan.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := compilePlan(args[0])
			if err != nil {
				return err
			}

			var out []byte
			if dotOutput {
				out = []byte(engine.ToDOT(plan))
			} else {
				out, err = json.MarshalIndent(plan, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode plan: %w", err)
				}
				out = append(out, '\n')
			}

			if outputPath != "" {
				if err := os.WriteFile(outputPath, out, 0o644); err != nil {
					return fmt.Errorf("failed to write plan: %w", err)
				}
				log.Info().Str("path", outputPath).Msg("Plan written")
				return nil
			}

			fmt.Print(string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dotOutput, "dot", false, "output the plan graph in DOT format")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write output to file instead of stdout")

	return cmd
}

// compilePlan loads the concept and optional designs overlay and compiles
// them into a plan.
func compilePlan(conceptPath string) (*engine.ExecutionPlan, error) {
	loader := concept.NewLoader()

	con, err := loader.LoadConcept(conceptPath)
	if err != nil {
		return nil, err
	}

	designs := map[string]concept.SceneDesign{}
	if designsPath != "" {
		designs, err = loader.LoadDesigns(designsPath)
		if err != nil {
			return nil, err
		}
	}

	return engine.NewCompiler(nil).Compile(con, designs)
}
