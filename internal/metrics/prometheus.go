package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cleanup reasons used as the label of MediaCleanupFailures
const (
	CleanupCompensation  = "compensation"
	CleanupReplaced      = "replaced"
	CleanupProductDelete = "product_delete"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "route", "status"},
	)
	mediaUploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_media_uploads_total",
			Help: "Media store uploads by driver and outcome.",
		},
		[]string{"driver", "outcome"},
	)
	mediaCleanupFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_media_cleanup_failures_total",
			Help: "Media deletions that failed during best-effort cleanup.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(mediaUploadsTotal)
	prometheus.MustRegister(mediaCleanupFailuresTotal)
}

// RecordRequest records the counter and latency of one HTTP request
func RecordRequest(method, route string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// RecordUpload counts one media upload attempt
func RecordUpload(driver string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	mediaUploadsTotal.WithLabelValues(driver, outcome).Inc()
}

// RecordCleanupFailures adds n failed best-effort deletions
func RecordCleanupFailures(reason string, n int) {
	if n <= 0 {
		return
	}
	mediaCleanupFailuresTotal.WithLabelValues(reason).Add(float64(n))
}

func classifyStatus(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500 && statusCode < 600:
		return "5xx"
	}
	return "unknown"
}

// Handler exposes the registered metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
