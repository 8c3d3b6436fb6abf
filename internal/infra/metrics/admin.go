package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(adminRequestsTotal) }

var adminRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "admin_requests_total",
		Help: "Tracks attempts to use admin endpoints.",
	},
	[]string{"status"}, // status: 'authorized', 'unauthorized'
)

func IncAdminRequest(status string) {
	adminRequestsTotal.WithLabelValues(norm(status)).Inc()
}
