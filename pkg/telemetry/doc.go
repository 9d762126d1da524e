// Package telemetry provides observability instrumentation for GamED.
//
// The telemetry package integrates structured logging (zerolog), distributed
// tracing (OpenTelemetry), and metrics (Prometheus) into a unified system for
// monitoring content-generation runs.
//
// # Structured Logging
//
// The logger provides component-specific logging with automatic context
// propagation:
//
//	logger, err := telemetry.NewLogger(cfg.Logging)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	logger = logger.NewComponentLogger("engine").
//	    WithRunID("run-123").
//	    WithPhase("content_dispatching")
//	logger.Info("Dispatching generation workers")
//	logger.WithError(err).Error("Worker failed")
//
// Log levels: trace, debug, info, warn, error, fatal. Loggers travel on the
// context via WithContext/FromContext; FromContext never returns nil.
//
// # Distributed Tracing
//
// Tracing provides visibility into run, phase, and worker timing:
//
//	ctx, span := tracer.StartRunSpan(ctx, runID)
//	defer span.End()
//
//	ctx, span = tracer.StartPhaseSpan(ctx, runID, "planning")
//	ctx, span = tracer.StartWorkerSpan(ctx, "unit_1_item_2", "quiz")
//
//	if err != nil {
//	    telemetry.RecordError(span, err)
//	}
//
// Supported exporters: "stdout" (development) and "none" (traces are
// generated but not exported). Configure via TracingConfig.Exporter.
//
// # Metrics
//
// Prometheus metrics track pipeline behavior:
//
//	metrics.RecordRunStarted()
//	metrics.RecordPhase("content_dispatching", duration)
//	metrics.RecordWorker("content_quiz", "succeeded", duration)
//	metrics.RecordRetryRound("content")
//	metrics.RecordValidationIssues("error", len(result.Errors))
//	metrics.RecordRunCompleted("degraded", duration)
//
// Metrics are exposed via HTTP at /metrics (default :9090) once
// StartMetricsServer is called.
//
// # Configuration
//
// DefaultConfig returns a development-friendly setup (console logging, stdout
// traces, metrics disabled). Override fields as needed and call Validate
// before use.
package telemetry
