package metrics

import (
	"content-entitlement/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		subscriptionsExpiredTotal,
		subscriptionsTotal,
		allowanceConsumedTotal,
	)
}

var (
	subscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Total number of subscriptions processed by the expiry worker.",
		},
	)

	subscriptionsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "subscriptions_total",
			Help: "Current number of subscriptions by status.",
		},
		[]string{"status"}, // 'active', 'cancelled', 'expired'
	)

	allowanceConsumedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allowance_consume_total",
			Help: "Allowance consume attempts by allowance kind and result (taken/exhausted).",
		},
		[]string{"allowance", "result"},
	)
)

func IncSubscriptionsExpired(count int) {
	subscriptionsExpiredTotal.Add(float64(count))
}

func SetSubscriptionsTotal(counts map[model.SubscriptionStatus]int) {
	statuses := []model.SubscriptionStatus{
		model.SubscriptionStatusActive,
		model.SubscriptionStatusCancelled,
		model.SubscriptionStatusExpired,
	}
	for _, status := range statuses {
		subscriptionsTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}

func IncAllowanceConsume(kind model.AllowanceKind, taken bool) {
	result := "exhausted"
	if taken {
		result = "taken"
	}
	allowanceConsumedTotal.WithLabelValues(norm(string(kind)), result).Inc()
}
