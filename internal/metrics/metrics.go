package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adeptify_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "adeptify_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	authEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adeptify_auth_events_total",
		Help: "Authentication outcomes by event and result",
	}, []string{"event", "result"})

	accessDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adeptify_access_denied_total",
		Help: "Requests rejected by authorization gates",
	}, []string{"gate"})

	activityEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adeptify_activity_entries_total",
		Help: "Activity log entries by outcome (persisted, failed, dropped)",
	}, []string{"result"})

	cleanupRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adeptify_cleanup_removed_total",
		Help: "Rows removed by retention cleanup",
	}, []string{"kind"})

	dbUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "adeptify_database_up",
		Help: "1 when the last database health check succeeded",
	})

	wsConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "adeptify_websocket_connections",
		Help: "Open notification websocket connections",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveAuth counts an authentication event such as login or refresh.
func ObserveAuth(event, result string) {
	authEvents.WithLabelValues(event, result).Inc()
}

// ObserveAccessDenied counts a rejection by the named gate.
func ObserveAccessDenied(gate string) {
	accessDenied.WithLabelValues(gate).Inc()
}

// ObserveActivity counts activity entries by result.
func ObserveActivity(result string, n int) {
	activityEntries.WithLabelValues(result).Add(float64(n))
}

// ObserveCleanup adds rows removed by a retention sweep.
func ObserveCleanup(kind string, removed int64) {
	cleanupRemoved.WithLabelValues(kind).Add(float64(removed))
}

// SetDatabaseUp records the result of the last health check.
func SetDatabaseUp(up bool) {
	if up {
		dbUp.Set(1)
		return
	}
	dbUp.Set(0)
}

// IncrementConnections increments the websocket gauge.
func IncrementConnections() {
	wsConnections.Inc()
}

// DecrementConnections decrements the websocket gauge.
func DecrementConnections() {
	wsConnections.Dec()
}
