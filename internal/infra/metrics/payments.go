package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		sessionsOpenedTotal,
		pendingStale,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_payments_total",
			Help: "Payments by terminal status (succeeded/failed/expired).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_payments_revenue_cents_total",
			Help: "The total monetary value of succeeded payments, in cents.",
		},
	)

	sessionsOpenedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_sessions_opened_total",
			Help: "Checkout sessions opened at the processor, by outcome.",
		},
		[]string{"outcome"},
	)

	pendingStale = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "checkout_payments_pending_stale",
			Help: "Pending payments older than the stale horizon, from the last sweep.",
		},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(amount int64) {
	paymentsRevenueTotal.Add(float64(amount))
}

func IncSessionOpened(outcome string) {
	sessionsOpenedTotal.WithLabelValues(norm(outcome)).Inc()
}

func SetPendingStale(n int) {
	pendingStale.Set(float64(n))
}
