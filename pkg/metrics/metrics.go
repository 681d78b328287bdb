package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GrantsIssued counts grant issuance attempts by result
	// (issued|duplicate|skipped|failed).
	GrantsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagepass_grants_issued_total",
			Help: "Total number of grant issuance attempts",
		},
		[]string{"result"},
	)

	// TokenCollisions counts duplicate-token rejections that forced a regenerate.
	TokenCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pagepass_token_collisions_total",
			Help: "Total number of token uniqueness collisions at persist time",
		},
	)

	// GateDecisions counts access gate outcomes (granted|denied|public).
	GateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagepass_gate_decisions_total",
			Help: "Total number of access gate decisions",
		},
		[]string{"decision"},
	)

	// NotificationSends counts access e-mail dispatches by result (sent|failed|disabled).
	NotificationSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagepass_notification_sends_total",
			Help: "Total number of access notification dispatch attempts",
		},
		[]string{"result"},
	)

	// MisconfiguredProducts tracks access-controlled products without a bound page.
	MisconfiguredProducts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pagepass_misconfigured_products",
			Help: "Access-controlled products with no bound page",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pagepass_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
