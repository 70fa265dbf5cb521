// Package metrics exposes Prometheus collectors for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "resume_refresh"

var (
	// deliveriesTotal counts ledger outcomes.
	// Labels:
	// - state:     "pending", "sent" or "failed"
	// - rendering: "interactive" or "static"
	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "deliveries_total",
			Help:      "Number of notification deliveries by state and rendering.",
		},
		[]string{"state", "rendering"},
	)

	// transportErrorsTotal counts failed sends by transport code.
	transportErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "transport_errors_total",
			Help:      "Number of failed sends by transport error code.",
		},
		[]string{"code"},
	)

	// submissionsTotal counts stored resumes.
	// Labels:
	// - source: "amp_email", "web_form" or "api"
	// - result: "created" or "updated"
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submissions",
			Name:      "total",
			Help:      "Number of resume submissions stored.",
		},
		[]string{"source", "result"},
	)

	// rateLimitExceeded counts HTTP 429 responses.
	rateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limit_exceeded_total",
			Help:      "Number of requests rejected due to rate limiting (HTTP 429)",
		},
		[]string{"route"},
	)
)

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// IncDelivery records a delivery reaching state.
func IncDelivery(state string, interactive bool) {
	rendering := "static"
	if interactive {
		rendering = "interactive"
	}
	deliveriesTotal.WithLabelValues(orUnknown(state), rendering).Inc()
}

// IncTransportError records a failed send by code.
func IncTransportError(code string) {
	transportErrorsTotal.WithLabelValues(orUnknown(code)).Inc()
}

// IncSubmission records a stored submission.
func IncSubmission(source string, created bool) {
	result := "updated"
	if created {
		result = "created"
	}
	submissionsTotal.WithLabelValues(orUnknown(source), result).Inc()
}

// IncRateLimitExceeded increments the 429 counter for route.
func IncRateLimitExceeded(route string) {
	rateLimitExceeded.WithLabelValues(orUnknown(route)).Inc()
}
