package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure|challenge).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oppora_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// ActiveSessions tracks active refresh sessions (not expired/revoked).
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "oppora_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// OpportunityViews counts view-marker outcomes (counted|duplicate).
	OpportunityViews = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oppora_opportunity_views_total",
			Help: "Opportunity view marker insertions by outcome",
		},
		[]string{"outcome"},
	)

	// NotificationsDelivered counts notification deliveries by channel and result.
	NotificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oppora_notifications_delivered_total",
			Help: "Notification deliveries by channel (inapp|telegram) and result",
		},
		[]string{"channel", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oppora_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
