// Package telemetry exposes the service's Prometheus business metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Business metrics for the billing and notification subsystem.
// Registered once at package load on the default registry.
var (
	// InvoiceRecomputes counts totals recomputations on the invoice
	// aggregate, labeled by the operation that triggered them.
	InvoiceRecomputes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "millwork",
			Name:      "invoice_recomputes_total",
			Help:      "Invoice totals recomputations by triggering operation",
		},
		[]string{"operation"},
	)

	// RoutingResolutions counts recipient resolutions by mode and outcome.
	RoutingResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "millwork",
			Name:      "routing_resolutions_total",
			Help:      "Recipient resolutions by routing mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	// DispatchAttempts counts per-recipient send attempts by channel and
	// delivery status.
	DispatchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "millwork",
			Name:      "dispatch_attempts_total",
			Help:      "Per-recipient send attempts by channel and delivery status",
		},
		[]string{"channel", "status"},
	)

	// DispatchDuration observes wall time of whole dispatch calls.
	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "millwork",
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of dispatch calls including all recipient fan-out",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
)
