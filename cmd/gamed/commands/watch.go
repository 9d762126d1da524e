package commands

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ShivenA99/GamED-AI-sub004/pkg/engine"
)

const revalidateDelay = 500 * time.Millisecond

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <concept.yaml>",
		Short: "Recompile and validate the concept on every change",
		Long: `Watch a concept file (and the designs overlay, if given) and rerun
compilation and plan validation whenever either changes. Rapid bursts of
writes are debounced into a single revalidation.`,
		Example: `  # Watch a concept while editing it
  gamed watch concept.yaml

  # Watch concept and designs together
  gamed watch concept.yaml --designs designs.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conceptPath := args[0]

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()

			// Watch parent directories: editors often replace files on
			// save, which drops the watch on the file itself.
			watched := map[string]bool{}
			for _, path := range []string{conceptPath, designsPath} {
				if path == "" {
					continue
				}
				dir := filepath.Dir(path)
				if !watched[dir] {
					if err := watcher.Add(dir); err != nil {
						return err
					}
					watched[dir] = true
				}
			}

			relevant := map[string]bool{
				filepath.Clean(conceptPath): true,
			}
			if designsPath != "" {
				relevant[filepath.Clean(designsPath)] = true
			}

			revalidate := func() {
				plan, err := compilePlan(conceptPath)
				if err != nil {
					log.Error().Err(err).Msg("Compilation failed")
					return
				}
				validation := engine.ValidatePlan(plan)
				printIssues(validation.Issues)
				if validation.Passed {
					log.Info().Int("units", len(plan.Units)).
						Int("max_score", plan.TotalMaxScore).
						Msg("Plan is valid")
				}
			}

			revalidate()
			log.Info().Str("path", conceptPath).Msg("Watching for changes")

			var timer *time.Timer
			for {
				select {
				case <-ctx.Done():
					return nil

				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
						continue
					}
					if !relevant[filepath.Clean(event.Name)] {
						continue
					}
					log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Concept changed")

					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(revalidateDelay, revalidate)

				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					log.Error().Err(err).Msg("Watcher error")
				}
			}
		},
	}

	return cmd
}
