package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		accessDecisionsTotal,
		purchasesTotal,
		promoRedemptionsTotal,
		quizRunsTotal,
	)
}

var (
	accessDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_decisions_total",
			Help: "Access checks by item type and outcome (granted/priced/unknown).",
		},
		[]string{"item_type", "outcome"},
	)

	purchasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchases_total",
			Help: "Ledger records written by item type and payment method.",
		},
		[]string{"item_type", "method"},
	)

	promoRedemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_redemptions_total",
			Help: "Promo code redemption attempts by result (redeemed/exhausted).",
		},
		[]string{"result"},
	)

	quizRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_runs_total",
			Help: "Stored quiz runs by quiz and band.",
		},
		[]string{"quiz", "band"},
	)
)

func IncAccessDecision(itemType, outcome string) {
	accessDecisionsTotal.WithLabelValues(norm(itemType), norm(outcome)).Inc()
}

func IncPurchase(itemType, method string) {
	purchasesTotal.WithLabelValues(norm(itemType), norm(method)).Inc()
}

func IncPromoRedemption(redeemed bool) {
	result := "exhausted"
	if redeemed {
		result = "redeemed"
	}
	promoRedemptionsTotal.WithLabelValues(result).Inc()
}

func IncQuizRun(quiz, band string) {
	quizRunsTotal.WithLabelValues(norm(quiz), norm(band)).Inc()
}
