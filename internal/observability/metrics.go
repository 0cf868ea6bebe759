package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "parcelroute"

var (
	MatchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "match_requests_total", Help: "Match requests by final state"},
		[]string{"state"},
	)
	MatchLatency = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "match_latency_seconds", Help: "End to end match latency", Buckets: prometheus.DefBuckets})
	MatchResults = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "match_results", Help: "Ranked results returned per request", Buckets: []float64{0, 1, 2, 5, 10, 20, 50}})

	CandidatesExcluded = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "match_candidates_excluded_total", Help: "Candidates dropped from matching by reason"},
		[]string{"reason"},
	)

	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "route_provider_calls_total", Help: "Directions provider calls by outcome"},
		[]string{"outcome"},
	)
	ProviderLatency = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "route_provider_latency_seconds", Help: "Directions provider latency", Buckets: prometheus.DefBuckets})

	ActiveRooms       = promauto.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "trip_rooms_active", Help: "Trip rooms with at least one member"})
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "ws_connections_active", Help: "Open real-time connections"})
	DroppedSends      = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "ws_dropped_sends_total", Help: "Outbound events dropped because a connection buffer was full"})

	WSEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ws_events_total", Help: "Inbound real-time events by name and outcome"},
		[]string{"event", "outcome"},
	)

	GPSFixesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "gps_fixes_total", Help: "GPS fixes by source and outcome"},
		[]string{"source", "outcome"},
	)
	ChatMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "chat_messages_total", Help: "Chat messages persisted"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
