package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	// Guardrail evaluation latency is sub-millisecond for typical prompts;
	// the upper buckets exist to catch pathological inputs.
	evaluationBuckets = []float64{
		.0001, .00025, .0005,
		.001, .0025, .005,
		.01, .025, .05,
		.1, .25, .5, 1,
	}

	GatewayRequestTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "veilgate_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "status"},
	)

	GuardrailEvaluationTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "veilgate_guardrail_evaluations_total",
			Help: "Guardrail evaluations by direction, mode and outcome",
		},
		[]string{"direction", "mode", "allowed"},
	)

	GuardrailViolationTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "veilgate_guardrail_violations_total",
			Help: "Guardrail violations by check kind and severity",
		},
		[]string{"kind", "severity"},
	)

	GuardrailEvaluationDuration = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "veilgate_guardrail_evaluation_duration_seconds",
			Help:    "Guardrail evaluation latency in seconds",
			Buckets: evaluationBuckets,
		},
		[]string{"direction"},
	)

	ProviderRequestTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "veilgate_provider_requests_total",
			Help: "Upstream LLM provider requests by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)
)

// Handler exposes the package registry for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
