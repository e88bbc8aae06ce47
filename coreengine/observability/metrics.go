// Package observability provides Prometheus metrics instrumentation for the
// coreengine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// WORKFLOW METRICS
// =============================================================================

var (
	workflowExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadforge_workflow_executions_total",
			Help: "Total number of workflow executions",
		},
		[]string{"route", "reason"}, // reason: completed_successfully, cancelled, ...
	)

	workflowDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cadforge_workflow_duration_seconds",
			Help:    "Workflow execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"route"},
	)

	workflowAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cadforge_workflow_attempts",
			Help:    "External-call attempts consumed per workflow",
			Buckets: []float64{1, 2, 3, 5, 8, 10, 15},
		},
		[]string{"route"},
	)
)

// =============================================================================
// STAGE METRICS
// =============================================================================

var (
	stageExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadforge_stage_executions_total",
			Help: "Total number of stage executions",
		},
		[]string{"stage", "outcome"}, // outcome: success, retry, fatal
	)

	stageDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cadforge_stage_duration_seconds",
			Help:    "Stage execution duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)
)

// =============================================================================
// INFERENCE METRICS
// =============================================================================

var (
	inferenceCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadforge_inference_calls_total",
			Help: "Total number of inference-service calls",
		},
		[]string{"model", "status"}, // status: success, error
	)

	inferenceDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cadforge_inference_duration_seconds",
			Help:    "Inference call duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model"},
	)
)

// =============================================================================
// SANDBOX & HEALING METRICS
// =============================================================================

var (
	sandboxExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadforge_sandbox_executions_total",
			Help: "Total number of sandbox executions",
		},
		[]string{"status"}, // status: success, failure, error
	)

	healsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadforge_heals_total",
			Help: "Total number of self-healing attempts",
		},
		[]string{"tier", "result"}, // tier: deterministic, inference
	)

	errorsByCategory = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadforge_classified_errors_total",
			Help: "Execution failures by classified category",
		},
		[]string{"category", "severity"},
	)
)

// =============================================================================
// PUBLIC API
// =============================================================================

// RecordWorkflowExecution records workflow metrics at terminal state.
func RecordWorkflowExecution(route, reason string, attempts int, durationMS int) {
	workflowExecutionsTotal.WithLabelValues(route, reason).Inc()
	workflowDurationSeconds.WithLabelValues(route).Observe(float64(durationMS) / 1000.0)
	workflowAttempts.WithLabelValues(route).Observe(float64(attempts))
}

// RecordStageExecution records stage metrics after a stage completes.
func RecordStageExecution(stage, outcome string, durationMS int) {
	stageExecutionsTotal.WithLabelValues(stage, outcome).Inc()
	stageDurationSeconds.WithLabelValues(stage).Observe(float64(durationMS) / 1000.0)
}

// RecordInferenceCall records inference-service call metrics.
func RecordInferenceCall(model, status string, durationMS int) {
	inferenceCallsTotal.WithLabelValues(model, status).Inc()
	inferenceDurationSeconds.WithLabelValues(model).Observe(float64(durationMS) / 1000.0)
}

// RecordSandboxExecution records a sandbox execution.
func RecordSandboxExecution(status string) {
	sandboxExecutionsTotal.WithLabelValues(status).Inc()
}

// RecordHeal records one self-healing attempt.
func RecordHeal(tier, result string) {
	healsTotal.WithLabelValues(tier, result).Inc()
}

// RecordClassifiedError records one classified execution failure.
func RecordClassifiedError(category, severity string) {
	errorsByCategory.WithLabelValues(category, severity).Inc()
}
