package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentVerificationsTotal,
		paymentVerifyDuration,
		paymentsRevenueTotal,
	)
}

var (
	paymentVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verifications_total",
			Help: "Payment reference verifications by provider and result (ok/rejected/error).",
		},
		[]string{"provider", "result"},
	)

	paymentVerifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_verify_duration_seconds",
			Help:    "Duration of calls to the payment processor in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"provider"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total value of direct purchases in minor units, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func ObservePaymentVerification(provider, result string, seconds float64) {
	paymentVerificationsTotal.WithLabelValues(norm(provider), norm(result)).Inc()
	paymentVerifyDuration.WithLabelValues(norm(provider)).Observe(seconds)
}

func AddPaymentRevenue(currency string, amount int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}
