package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	designsPath string
	jsonOutput  bool

	// buildVersion is the binary version, used for telemetry identification.
	buildVersion = "dev"
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	buildVersion = version
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gamed",
		Short: "GamED - Educational Game Content Pipeline",
		Long: `GamED compiles validated game concepts into execution plans and drives
them through the content generation pipeline.

Features:
  - Deterministic concept-to-plan compilation
  - Structural plan validation with cycle and scope checks
  - Parallel fan-out content generation with per-worker timeouts
  - Validation-gated retries narrowed to failed units
  - Optional enrichment pass and run history`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().StringVarP(&designsPath, "designs", "d", "", "scene designs file path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newCompileCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}
