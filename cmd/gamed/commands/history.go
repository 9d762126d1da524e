package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded runs",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "runs.db", "run history SQLite database path")

	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := openStore(cmd.Context(), dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit, 0)
			if err != nil {
				return err
			}

			if jsonOutput {
				out, err := json.MarshalIndent(runs, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			for _, run := range runs {
				fmt.Printf("%s  %-10s  degraded=%-5v  %d/%d ok  retries=%d  %s\n",
					run.ID, run.Status, run.Degraded,
					run.Succeeded, run.TotalSubUnits, run.RetryRounds,
					run.StartedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
	list.Flags().Int("limit", 20, "maximum runs to list")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run's phases and worker attempts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			phases, err := store.ListPhaseEvents(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			results, err := store.ListUnitResultsByRun(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			if jsonOutput {
				out, err := json.MarshalIndent(map[string]any{
					"run":     run,
					"phases":  phases,
					"results": results,
				}, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			fmt.Printf("run %s  title=%q  status=%s  degraded=%v\n", run.ID, run.Title, run.Status, run.Degraded)
			fmt.Printf("  sub-units: %d total, %d succeeded, %d failed, %d retry round(s)\n",
				run.TotalSubUnits, run.Succeeded, run.Failed, run.RetryRounds)
			fmt.Println("phases:")
			for _, phase := range phases {
				fmt.Printf("  %s  %s\n", phase.EnteredAt.Format("15:04:05.000"), phase.Phase)
			}
			fmt.Println("attempts:")
			for _, result := range results {
				line := fmt.Sprintf("  round %d  %-24s  %-8s  %dms", result.Round, result.UnitKey, result.Status, result.DurationMs)
				if result.Error != nil {
					line += "  " + *result.Error
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.AddCommand(list)
	cmd.AddCommand(show)
	return cmd
}
