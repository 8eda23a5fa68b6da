// Package metrics defines the Prometheus collectors for TierStore.
package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// registerOnce ensures Register() is idempotent.
var registerOnce sync.Once

// sizeBuckets are exponential buckets for request/response size histograms (bytes).
var sizeBuckets = []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304, 16777216, 67108864}

// HTTP metrics (RED: Rate, Errors, Duration).
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tierstore_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tierstore_http_request_duration_seconds",
			Help:    "Request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tierstore_http_response_size_bytes",
			Help:    "Response body size in bytes",
			Buckets: sizeBuckets,
		},
		[]string{"method", "path"},
	)
)

// Tier operation metrics.
var (
	// TierOperationsTotal counts manager operations by tier, operation and
	// outcome ("success" or an error kind).
	TierOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tierstore_tier_operations_total",
			Help: "Storage tier operations by tier, operation and status",
		},
		[]string{"tier", "operation", "status"},
	)

	// TierBytesTotal counts file content bytes moved through the manager.
	TierBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tierstore_tier_bytes_total",
			Help: "Bytes written to or read from each tier",
		},
		[]string{"tier", "direction"},
	)

	// NotificationsTotal counts user-facing notifications by level.
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tierstore_notifications_total",
			Help: "Notifications emitted by level",
		},
		[]string{"level"},
	)
)

// Register registers all Prometheus collectors with the default registry.
// It must be called explicitly (typically from main) so that registration
// can follow configuration. Subsequent calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			HTTPResponseSize,
			TierOperationsTotal,
			TierBytesTotal,
			NotificationsTotal,
		)
		TierOperationsTotal.WithLabelValues("internal-persistent", "write", "success")
	})
}

// ObserveOperation records one terminal outcome of a tier operation.
func ObserveOperation(tier, operation, status string) {
	TierOperationsTotal.WithLabelValues(tier, operation, status).Inc()
}

// ObserveBytes adds n bytes in the given direction ("in" or "out").
func ObserveBytes(tier, direction string, n int64) {
	if n <= 0 {
		return
	}
	TierBytesTotal.WithLabelValues(tier, direction).Add(float64(n))
}

// NormalizePath maps request paths to route templates so file names never
// become label values.
func NormalizePath(path string) string {
	switch path {
	case "/health", "/metrics", "/tiers", "/permissions", "/openapi", "/openapi.json", "/openapi.yaml":
		return path
	case "/docs", "/docs/":
		return "/docs"
	case "/", "":
		return "/"
	}
	if strings.HasPrefix(path, "/docs") {
		return "/docs"
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if parts[0] != "tiers" {
		return "/other"
	}
	switch {
	case len(parts) == 2:
		return "/tiers/{tier}"
	case len(parts) == 3 && parts[2] == "files":
		return "/tiers/{tier}/files"
	case len(parts) == 3 && parts[2] == "captures":
		return "/tiers/{tier}/captures"
	case len(parts) >= 4 && parts[2] == "files":
		return "/tiers/{tier}/files/{name}"
	}
	return "/other"
}
