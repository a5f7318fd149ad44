package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_transitions_total",
			Help: "Total number of applied job and application status transitions",
		},
		[]string{"entity", "to"},
	)

	TransitionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_transitions_rejected_total",
			Help: "Total number of rejected transitions by error code",
		},
		[]string{"entity", "code"},
	)

	NotificationsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_persisted_total",
			Help: "Total number of activities persisted",
		},
		[]string{"type"},
	)

	NotificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_delivered_total",
			Help: "Total number of realtime deliveries by result",
		},
		[]string{"result"},
	)

	ReportsFiled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_reports_total",
			Help: "Total number of filed reports",
		},
		[]string{"content_type"},
	)

	ScanRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deadline_scan_runs_total",
			Help: "Total number of deadline scan runs by result",
		},
		[]string{"result"},
	)

	ScanWarnings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deadline_scan_warnings_total",
			Help: "Total number of deadline warnings sent",
		},
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "deadline_scan_duration_seconds",
			Help: "Duration of deadline scan runs in seconds",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "route"},
	)

	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_connections",
			Help: "Number of open websocket connections",
		},
	)
)
