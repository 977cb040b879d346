package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsuite_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docsuite_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// collaboration metrics
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docsuite_active_sessions",
			Help: "Live collaboration sessions",
		},
	)

	ConnectedParticipants = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docsuite_connected_participants",
			Help: "Participants currently joined to a session",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsuite_events_published_total",
			Help: "Session events published",
		},
		[]string{"type"},
	)

	CommandErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsuite_command_errors_total",
			Help: "Client commands rejected",
		},
		[]string{"code"},
	)

	DroppedDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docsuite_dropped_deliveries_total",
			Help: "Events dropped because a connection queue was full",
		},
	)

	LockAcquisitions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docsuite_lock_acquisitions_total",
			Help: "Edit lock acquisitions",
		},
	)

	LockContention = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docsuite_lock_contention_total",
			Help: "Edit lock requests rejected because another participant holds the lock",
		},
	)

	// transport metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docsuite_websocket_connections",
			Help: "Open websocket connections",
		},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsuite_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"scope"},
	)

	// archive metrics
	ArchiveFlushes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docsuite_archive_flushes_total",
			Help: "Comment records flushed to the database",
		},
	)

	ArchiveFlushFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docsuite_archive_flush_failures_total",
			Help: "Failed comment archive flushes",
		},
	)
)
