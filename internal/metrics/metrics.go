package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Broadcast metrics
var (
	// ConnectedClients tracks the number of live WebSocket feed connections
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_connected_clients",
			Help: "Number of live WebSocket feed connections",
		},
	)

	// BroadcastsTotal tracks broadcasts by event kind and delivery path (relay/local)
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_broadcasts_total",
			Help: "Total broadcasts by event kind and delivery path",
		},
		[]string{"kind", "path"},
	)

	// SendFailures tracks connections dropped because a send could not be delivered
	SendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_send_failures_total",
			Help: "Connections dropped because a send failed or the client was too slow",
		},
	)
)

// Relay metrics
var (
	// RelayPublishFailures tracks failed publishes to the relay channel
	RelayPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_relay_publish_failures_total",
			Help: "Failed publishes to the relay channel",
		},
	)

	// RelayDisabled is 1 once the relay has been disabled for the process lifetime
	RelayDisabled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_relay_disabled",
			Help: "1 once the relay has been permanently disabled for this process",
		},
	)

	// RelayMessagesReceived tracks inbound relay messages by outcome (ok/malformed)
	RelayMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_relay_messages_received_total",
			Help: "Inbound relay messages by outcome",
		},
		[]string{"outcome"},
	)
)

// Expiry sweeper metrics
var (
	// SweepsTotal tracks sweep executions by status (ok/error/skipped)
	SweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expiry_sweeps_total",
			Help: "Expiry sweep executions by status",
		},
		[]string{"status"},
	)

	// SweepDuration tracks sweep latency in seconds
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "expiry_sweep_duration_seconds",
			Help:    "Expiry sweep duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// PostsExpiredTotal tracks posts deleted by the sweeper
	PostsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "expiry_posts_expired_total",
			Help: "Posts deleted by the expiry sweeper",
		},
	)

	// MediaDeleteFailures tracks best-effort media deletions that failed
	MediaDeleteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "expiry_media_delete_failures_total",
			Help: "Best-effort media deletions that failed",
		},
	)
)
