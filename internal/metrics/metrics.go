// Package metrics declares the Prometheus collectors parley exports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion Metrics
var (
	// MessagesReceived counts inbound chat messages seen by the daemon
	MessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parley_messages_received_total",
			Help: "Total inbound chat messages received from the platform",
		},
	)

	// MessagesEnqueued counts messages accepted by the ingestion filter, by reason
	MessagesEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_messages_enqueued_total",
			Help: "Total messages accepted for dispatch by reason (mention/continuation/ambient)",
		},
		[]string{"reason"},
	)

	// MessagesFiltered counts messages the ingestion filter declined
	MessagesFiltered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parley_messages_filtered_total",
			Help: "Total inbound messages not selected for a reply",
		},
	)

	// QueueDepth tracks pending messages in the dispatch queue
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "parley_queue_depth",
			Help: "Number of messages waiting for the dispatch worker",
		},
	)
)

// Dispatch Metrics
var (
	// Completions counts completion calls by outcome (ok or an error kind)
	Completions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_completions_total",
			Help: "Total completion calls by outcome",
		},
		[]string{"outcome"},
	)

	// CompletionDuration tracks completion call latency in seconds
	CompletionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "parley_completion_duration_seconds",
			Help:    "Completion call duration in seconds",
			Buckets: []float64{.25, .5, 1, 2, 4, 8, 16, 32, 64},
		},
	)

	// RepliesSent counts reply chunks delivered to the platform
	RepliesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parley_replies_sent_total",
			Help: "Total reply messages delivered to the chat platform",
		},
	)
)

// Session Metrics
var (
	// SessionsActive tracks the number of live channel sessions
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "parley_sessions_active",
			Help: "Number of channel sessions currently held in memory",
		},
	)

	// SessionRefreshes counts session (re)creations by reason (new/expired/reset)
	SessionRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_session_refreshes_total",
			Help: "Total session creations by reason",
		},
		[]string{"reason"},
	)

	// SessionTrims counts history trims by reason (overflow/forced)
	SessionTrims = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_session_trims_total",
			Help: "Total session history trims by reason",
		},
		[]string{"reason"},
	)

	// SessionEvictions counts Sessions dropped after sitting idle
	SessionEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parley_session_evictions_total",
			Help: "Total idle sessions evicted from the store",
		},
	)
)
