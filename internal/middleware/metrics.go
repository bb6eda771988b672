package middleware

import (
	"strconv"
	"time"

	"github.com/civicdesk/api/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	statusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_transitions_total",
			Help: "Accepted report and emergency status transitions",
		},
		[]string{"entity", "from", "to"},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Notifications stored per type and outcome",
		},
		[]string{"type", "status"},
	)

	rateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Submissions refused by the rate limiter",
		},
		[]string{"action"},
	)

	notificationsPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_purged_total",
			Help: "Expired notifications removed by the sweeper",
		},
	)
)

// MetricsMiddleware collects Prometheus metrics for every HTTP request.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()

		// route pattern keeps label cardinality bounded
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		c.Next()

		httpRequestsInFlight.Dec()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(duration)
	}
}

// RecordStatusTransition counts an accepted status change.
func RecordStatusTransition(entity, from, to string) {
	statusTransitionsTotal.WithLabelValues(entity, from, to).Inc()
}

// RecordNotificationDispatch matches service.NotificationService.OnDispatch.
func RecordNotificationDispatch(t model.NotificationType, delivered int, err error) {
	if err != nil {
		notificationsTotal.WithLabelValues(string(t), "error").Inc()
		return
	}
	notificationsTotal.WithLabelValues(string(t), "stored").Add(float64(delivered))
}

// RecordRateLimited counts a refused submission.
func RecordRateLimited(action string) {
	rateLimitedTotal.WithLabelValues(action).Inc()
}

// RecordSweep matches scheduler.NotificationSweeper.OnSweep.
func RecordSweep(purged int64, err error) {
	if err == nil {
		notificationsPurgedTotal.Add(float64(purged))
	}
}
