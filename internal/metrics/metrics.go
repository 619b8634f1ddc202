// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ReplyAttemptsTotal counts completion attempts by outcome
	// (ok, rate_limited, server_error, timeout, connection_error, client_error, unknown_error).
	ReplyAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careerbot_reply_attempts_total",
			Help: "Completion API attempts grouped by outcome",
		},
		[]string{"outcome"},
	)

	// RepliesTotal counts finished replies: succeeded or the terminal failure kind.
	RepliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careerbot_replies_total",
			Help: "Finished replies grouped by result",
		},
		[]string{"result"},
	)

	ReplyDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "careerbot_reply_duration_seconds",
			Help:    "Wall time of a reply including retries and backoff",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120, 240},
		},
	)

	UpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careerbot_updates_total",
			Help: "Inbound updates grouped by route",
		},
		[]string{"route"},
	)

	HandlerPanicsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "careerbot_handler_panics_total",
			Help: "Recovered panics in update handlers",
		},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "careerbot_active_sessions",
			Help: "Sessions currently held in memory",
		},
	)

	SessionsReapedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "careerbot_sessions_reaped_total",
			Help: "Sessions evicted by the idle reaper",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ReplyAttemptsTotal,
		RepliesTotal,
		ReplyDurationSeconds,
		UpdatesTotal,
		HandlerPanicsTotal,
		ActiveSessions,
		SessionsReapedTotal,
	)
}
