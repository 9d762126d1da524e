package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ShivenA99/GamED-AI-sub004/pkg/concept"
	"github.com/ShivenA99/GamED-AI-sub004/pkg/engine"
	"github.com/ShivenA99/GamED-AI-sub004/pkg/stores"
	"github.com/ShivenA99/GamED-AI-sub004/pkg/telemetry"
	"github.com/ShivenA99/GamED-AI-sub004/pkg/worker"
)

func newRunCommand() *cobra.Command {
	var (
		dbPath        string
		outputPath    string
		maxRetries    int
		maxParallel   int
		workerTimeout time.Duration
		metricsListen string
		traceExporter string
	)

	cmd := &cobra.Command{
		Use:   "run <concept.yaml>",
		Short: "Run the full content generation pipeline",
		Long: `Compile a concept, validate the plan, fan out content generation,
merge and validate results with bounded retries, and assemble the final
artifact. Failed validation gates re-dispatch only the failed units.

The built-in deterministic generator produces placeholder content; it
stands in for model-backed workers.`,
		Example: `  # Run a concept end to end
  gamed run concept.yaml

  # Run with designs, history and a custom retry budget
  gamed run concept.yaml --designs designs.yaml --db runs.db --max-retries 3

  # Write the assembled artifact to a file
  gamed run concept.yaml --output artifact.json

  # Trace the run, one span per phase and worker, to stdout
  gamed run concept.yaml --trace stdout`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			loader := concept.NewLoader()
			con, err := loader.LoadConcept(args[0])
			if err != nil {
				return err
			}
			designs := map[string]concept.SceneDesign{}
			if designsPath != "" {
				designs, err = loader.LoadDesigns(designsPath)
				if err != nil {
					return err
				}
			}

			logger, err := telemetry.NewLogger(telemetry.LoggingConfig{
				Level:  os.Getenv("LOG_LEVEL"),
				Format: "console",
				Output: "stderr",
			})
			if err != nil {
				return err
			}

			metricsCfg := telemetry.MetricsConfig{Enabled: metricsListen != "", ListenAddress: metricsListen, Path: "/metrics", Namespace: "gamed"}
			metrics, err := telemetry.NewMetrics(metricsCfg)
			if err != nil {
				return err
			}
			if metricsCfg.Enabled {
				if err := metrics.StartMetricsServer(); err != nil {
					return err
				}
			}

			var tracer *telemetry.Tracer
			if traceExporter != "" {
				tracer, err = telemetry.NewTracer(telemetry.TracingConfig{
					Enabled:      true,
					Exporter:     traceExporter,
					SamplingRate: 1.0,
				}, "gamed", buildVersion, "development")
				if err != nil {
					return err
				}
				defer func() {
					if err := tracer.Shutdown(context.Background()); err != nil {
						log.Warn().Err(err).Msg("Tracer shutdown failed")
					}
				}()
			}

			var recorder engine.RunRecorder
			if dbPath != "" {
				store, err := openStore(ctx, dbPath)
				if err != nil {
					return err
				}
				defer store.Close()
				recorder = stores.NewRecorder(store)
			}

			gen := worker.NewGenerator()
			seq := engine.NewSequencer(engine.Options{
				MaxContentRetries: maxRetries,
				MaxParallel:       maxParallel,
				WorkerTimeout:     workerTimeout,
			}, gen.Generate, engine.Deps{
				EnrichWorker: gen.Enrich,
				Logger:       logger,
				Metrics:      metrics,
				Tracer:       tracer,
				Recorder:     recorder,
			})

			outcome, err := seq.Run(ctx, con, designs)
			if err != nil {
				return err
			}

			if outputPath != "" {
				out, err := json.MarshalIndent(outcome, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode outcome: %w", err)
				}
				if err := os.WriteFile(outputPath, append(out, '\n'), 0o644); err != nil {
					return fmt.Errorf("failed to write artifact: %w", err)
				}
				log.Info().Str("path", outputPath).Msg("Artifact written")
			} else if jsonOutput {
				out, err := json.MarshalIndent(outcome, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode outcome: %w", err)
				}
				fmt.Println(string(out))
			}

			printIssues(outcome.Unresolved)
			log.Info().
				Str("run_id", outcome.RunID).
				Bool("degraded", outcome.Degraded).
				Int("succeeded", outcome.Summary.Succeeded).
				Int("failed", outcome.Summary.Failed).
				Int("retry_rounds", outcome.Summary.RetryRounds).
				Dur("duration", outcome.Summary.Duration).
				Msg("Run complete")

			if outcome.Degraded {
				return fmt.Errorf("run finished degraded with %d unresolved issue(s)", len(outcome.Unresolved))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "record run history to this SQLite database")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the run outcome to file")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "content retry budget (default 2)")
	cmd.Flags().IntVar(&maxParallel, "parallel", 0, "max concurrent workers (default 8)")
	cmd.Flags().DurationVar(&workerTimeout, "timeout", 0, "per-worker timeout (default 30s)")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&traceExporter, "trace", "", "enable tracing with this exporter (stdout, none)")

	return cmd
}

// openStore opens, initializes and migrates the run-history store.
func openStore(ctx context.Context, path string) (*stores.SQLiteStore, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
