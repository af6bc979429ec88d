// Package metrics exposes Prometheus instrumentation for the workflow
// engine, the scraping cache, and the voice caller.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WorkflowsTotal counts finished workflow runs by final status.
	WorkflowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carebridge_workflows_total",
		Help: "Finished workflow runs by final status.",
	}, []string{"status"})

	// StepFailures counts workflow step failures by step name.
	StepFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carebridge_workflow_step_failures_total",
		Help: "Workflow step failures by step.",
	}, []string{"step"})

	// ScrapeAttempts counts per-URL scrape attempts by category and status.
	ScrapeAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carebridge_scrape_attempts_total",
		Help: "Scrape attempts by listing category and status.",
	}, []string{"category", "status"})

	// VoiceCalls counts outbound shelter-confirmation calls by end state.
	VoiceCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carebridge_voice_calls_total",
		Help: "Outbound voice calls by end state.",
	}, []string{"end_state"})

	// WorkflowDuration observes end-to-end workflow run time.
	WorkflowDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "carebridge_workflow_duration_seconds",
		Help:    "End-to-end workflow duration.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
