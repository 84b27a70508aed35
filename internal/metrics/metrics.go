package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// DecisionsTotal counts admin decisions by action and outcome
	// (approved, approved_without_member, rejected, already_final, not_found, failed, unauthorized).
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_decisions_total",
			Help: "Admin approve/reject decisions by outcome",
		},
		[]string{"action", "outcome"},
	)

	ProviderCallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_callbacks_total",
			Help: "Payment provider callbacks by normalized status",
		},
		[]string{"status"},
	)

	NotificationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Chat notifications that could not be delivered",
		},
		[]string{"kind"},
	)

	PartialFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_partial_failures_total",
			Help: "Approval workflow runs aborted after a partial write",
		},
		[]string{"step"},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}
