// Package metrics exposes Prometheus collectors for the reconciliation
// service. Collectors are registered on the default registry and served by
// the HTTP surface at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChecksTotal counts reconciliation checks by terminal outcome.
	ChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciler_checks_total",
		Help: "Reconciliation checks by outcome.",
	}, []string{"outcome"})

	// CreditsApplied counts balance credits actually applied.
	CreditsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconciler_credits_applied_total",
		Help: "Balance credits applied exactly once.",
	})

	// DuplicatesAbsorbed counts credit attempts short-circuited by the
	// idempotency key.
	DuplicatesAbsorbed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconciler_duplicates_absorbed_total",
		Help: "Credit attempts absorbed as already-processed duplicates.",
	})

	// BankRequestDuration observes bank API call latency per endpoint.
	BankRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reconciler_bank_request_duration_seconds",
		Help:    "Latency of outbound bank API calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// BankRequestErrors counts failed bank API calls per endpoint.
	BankRequestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciler_bank_request_errors_total",
		Help: "Failed outbound bank API calls.",
	}, []string{"endpoint"})

	// TrainingRequestsSwept counts stale training requests processed by the
	// expiry sweep, by resulting status.
	TrainingRequestsSwept = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciler_training_requests_swept_total",
		Help: "Stale training requests processed by the expiry sweep.",
	}, []string{"status"})
)

// Outcome label values for ChecksTotal.
const (
	OutcomeCredited      = "credited"
	OutcomeDuplicate     = "duplicate"
	OutcomeNotFound      = "not_found"
	OutcomeNoRecipient   = "no_recipient"
	OutcomeInvalidCode   = "invalid_code"
	OutcomeNotConfigured = "not_configured"
	OutcomeError         = "error"
)

// ObserveCheck records the terminal outcome of one reconciliation check.
func ObserveCheck(outcome string) {
	ChecksTotal.WithLabelValues(outcome).Inc()
}
