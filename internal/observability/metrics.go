package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SwipesTotal counts recorded swipe decisions by kind and outcome.
	SwipesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pwani_swipes_total",
		Help: "Total number of swipe decisions recorded, by kind and outcome",
	}, []string{"kind", "outcome"})

	// MatchesCreatedTotal counts matches created from mutual likes.
	MatchesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pwani_matches_created_total",
		Help: "Total number of matches created from mutual likes",
	})

	// DiscoveryLatency records discovery feed computation latency.
	DiscoveryLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pwani_discovery_latency_seconds",
		Help:    "Discovery feed computation latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// DiscoveryCandidates records how many candidates survive filtering per request.
	DiscoveryCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pwani_discovery_candidates",
		Help:    "Number of candidates remaining after discovery filtering",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
	})

	// MessagesTotal counts chat messages by type.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pwani_messages_total",
		Help: "Total number of chat messages processed, by type",
	}, []string{"message_type"})

	// WebSocketConnectionsTotal is the gauge of active WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pwani_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts WebSocket events by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pwani_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to slow clients.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pwani_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pwani_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// ObserveDiscovery records one discovery pass.
func ObserveDiscovery(start time.Time, candidates int) {
	DiscoveryLatency.Observe(time.Since(start).Seconds())
	DiscoveryCandidates.Observe(float64(candidates))
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
