// Package metrics exposes Prometheus instrumentation for the redemption path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedeemDuration tracks end-to-end latency of redemption attempts,
	// labelled by terminal outcome (recorded, unauthorized, limit_exceeded,
	// storage_failure, invalid_configuration).
	RedeemDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "perks_redeem_duration_seconds",
			Help: "Duration of redemption attempts in seconds",
			Buckets: []float64{
				0.001, // 1ms
				0.005, // 5ms
				0.01,  // 10ms
				0.025, // 25ms
				0.05,  // 50ms
				0.1,   // 100ms
				0.25,  // 250ms
				0.5,   // 500ms
				1.0,   // 1s
				2.5,   // 2.5s
			},
		},
		[]string{"outcome"},
	)

	// EligibilityDenials counts denials by usage-limit kind. Useful for
	// spotting offers whose caps are set too low.
	EligibilityDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perks_eligibility_denials_total",
			Help: "Eligibility denials by offer usage-limit kind",
		},
		[]string{"usage_limit"},
	)
)

// RecordRedeemDuration records one redemption attempt's duration.
func RecordRedeemDuration(outcome string, seconds float64) {
	RedeemDuration.WithLabelValues(outcome).Observe(seconds)
}
