package telemetry_test

import (
	"context"
	"fmt"
	"time"

	"github.com/ShivenA99/GamED-AI-sub004/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Example_structuredLogging demonstrates structured logging features.
func Example_structuredLogging() {
	cfg := telemetry.DefaultConfig()
	cfg.Logging.Output = "stdout"

	logger, err := telemetry.NewLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}

	// Component-specific logger
	logger = logger.NewComponentLogger("engine")

	// Add pipeline context fields
	logger = logger.WithRunID("run-123").WithPhase("planning")

	// Log at different levels
	logger.Debug("Building unit plan")
	logger.Info("Plan built")
	logger.Warn("Scene declares no mechanics")

	// Log with error
	err = fmt.Errorf("worker timed out")
	logger.WithError(err).Error("Content attempt failed")

	// Output varies, no output specified
}

// Example_tracing demonstrates run, phase and worker spans.
func Example_tracing() {
	cfg := telemetry.DefaultConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "stdout"

	tracer, err := telemetry.NewTracer(cfg.Tracing,
		cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		panic(err)
	}
	defer tracer.Shutdown(context.Background())

	// Start the run span
	ctx, runSpan := tracer.StartRunSpan(context.Background(), "run-123")
	defer runSpan.End()

	// Nested phase span
	ctx, phaseSpan := tracer.StartPhaseSpan(ctx, "run-123", "content_dispatching")
	defer phaseSpan.End()

	phaseSpan.SetAttributes(attribute.Int("units.dispatched", 4))

	// Worker span below the phase
	_, workerSpan := tracer.StartWorkerSpan(ctx, "unit_1_item_1", "content")

	// Simulate work
	time.Sleep(10 * time.Millisecond)

	telemetry.RecordSuccess(workerSpan)
	workerSpan.End()

	// Output varies, no output specified
}

// Example_metricsCollection demonstrates metrics collection.
func Example_metricsCollection() {
	cfg := telemetry.DefaultConfig()
	cfg.Metrics.Enabled = true

	metrics, err := telemetry.NewMetrics(cfg.Metrics)
	if err != nil {
		panic(err)
	}

	// Record run metrics
	metrics.RecordRunStarted()

	// Simulate run execution
	start := time.Now()
	time.Sleep(50 * time.Millisecond)

	// Record phase and worker metrics
	metrics.RecordPhase("planning", 5*time.Millisecond)
	metrics.RecordWorker("content", "success", 25*time.Millisecond)
	metrics.RecordRetryRound("content_dispatching")
	metrics.RecordValidationIssues("warning", 2)

	metrics.RecordRunCompleted("succeeded", time.Since(start))

	fmt.Println("Metrics recorded successfully")
	// Output: Metrics recorded successfully
}
