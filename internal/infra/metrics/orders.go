package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ordersTotal,
		quotesTotal,
		pricingRejectedTotal,
	)
}

var (
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_orders_total",
			Help: "Orders submitted, labeled by resulting status.",
		},
		[]string{"status"},
	)

	quotesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_quotes_total",
			Help: "Successful price quotes served.",
		},
	)

	pricingRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_pricing_rejected_total",
			Help: "Pricing rejections by reason (reference/quantity/computation).",
		},
		[]string{"reason"},
	)
)

func IncOrder(status string) {
	ordersTotal.WithLabelValues(norm(status)).Inc()
}

func IncQuote() {
	quotesTotal.Inc()
}

func IncPricingRejected(reason string) {
	pricingRejectedTotal.WithLabelValues(norm(reason)).Inc()
}
