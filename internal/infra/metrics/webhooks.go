package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(webhookEventsTotal)
}

// Outcomes: applied, duplicate, ignored, invalid_signature, unknown_session,
// retryable.
var webhookEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "checkout_webhook_events_total",
		Help: "Inbound processor webhook events by disposition.",
	},
	[]string{"outcome"},
)

func IncWebhookEvent(outcome string) {
	webhookEventsTotal.WithLabelValues(norm(outcome)).Inc()
}
