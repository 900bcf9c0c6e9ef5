package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ApplicationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_transitions_total",
			Help: "Application workflow transitions by action",
		},
		[]string{"action"},
	)

	ApplicationSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_submissions_total",
			Help: "Application submissions by outcome",
		},
		[]string{"outcome"},
	)

	ApplicationSubmissionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "application_submissions_active",
			Help: "Application submissions currently in flight",
		},
	)

	AdvisoryChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisory_checks_total",
			Help: "Eligibility checks by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	NewsletterSignups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsletter_signups_total",
			Help: "Newsletter signups by outcome",
		},
		[]string{"outcome"},
	)

	ContactMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_messages_total",
			Help: "Contact messages by delivery outcome",
		},
		[]string{"outcome"},
	)

	OutboundRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outbound_request_duration_seconds",
			Help:    "Duration of calls to external services",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"target", "status_class"},
	)
)

// StatusClass buckets an HTTP status code as "2xx", "4xx" and so on; 0 is "error".
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "error"
	}
}
