package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/Kyy487/ruangcerita/services"

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
		[]string{"method", "endpoint", "status", "service"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "service"},
	)

	chatOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_operations_total",
			Help: "Chat store operations by outcome",
		},
		[]string{"operation", "status", "service"},
	)

	chatOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_operation_duration_seconds",
			Help:    "Time from request to persisted write",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"operation", "service"},
	)

	chatErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_errors_total",
			Help: "Failed chat store operations by kind",
		},
		[]string{"operation", "kind", "service"},
	)

	liveViews = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chat_live_views",
			Help: "Open live chat views",
		},
		[]string{"role", "service"},
	)

	viewFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_view_frames_total",
			Help: "Frames pushed to live views",
		},
		[]string{"event", "service"},
	)
)

func PrometheusMiddleware(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status, serviceName).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path, serviceName).Observe(time.Since(start).Seconds())
	}
}

// errorKind keeps the label set bounded; raw error text never becomes a label.
func errorKind(err error) string {
	switch {
	case errors.Is(err, services.ErrWriteConflict):
		return "write_conflict"
	case errors.Is(err, services.ErrDisplayNameRequired):
		return "display_name_required"
	default:
		return "substrate"
	}
}

// RecordChatOperation records one store operation. status is "ok", "noop"
// or "error".
func RecordChatOperation(operation, status, serviceName string, duration time.Duration, err error) {
	chatOperationsTotal.WithLabelValues(operation, status, serviceName).Inc()
	chatOperationDuration.WithLabelValues(operation, serviceName).Observe(duration.Seconds())
	if err != nil {
		chatErrors.WithLabelValues(operation, errorKind(err), serviceName).Inc()
	}
}

// TrackLiveView counts a mounted view; call the returned func on unmount.
func TrackLiveView(role, serviceName string) func() {
	g := liveViews.WithLabelValues(role, serviceName)
	g.Inc()
	return g.Dec
}

func RecordViewFrame(event, serviceName string) {
	viewFrames.WithLabelValues(event, serviceName).Inc()
}
