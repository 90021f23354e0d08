package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	SubsystemAPIClient = "api_client"
	SubsystemSandbox   = "sandbox_http"
)

// RequestMetrics records HTTP request latency and outcome on either side of the API.
type RequestMetrics struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
}

// NewRequestMetrics registers the request metrics under subsystem on the provided registerer.
func NewRequestMetrics(reg prometheus.Registerer, subsystem string) *RequestMetrics {
	if reg == nil {
		return &RequestMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "raamul",
		Subsystem: subsystem,
		Name:      "request_duration_seconds",
		Help:      "Duration of storefront API requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "raamul",
		Subsystem: subsystem,
		Name:      "requests_total",
		Help:      "Storefront API requests by status and outcome.",
	}, []string{"method", "route", "status", "outcome"})
	reg.MustRegister(duration, total)
	return &RequestMetrics{duration: duration, total: total}
}

// Observe records one finished request. A zero status means the request never got a response.
func (m *RequestMetrics) Observe(method, route string, status int, elapsed time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	method = normalizeLabel(method)
	route = normalizeLabel(route)
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
	m.total.WithLabelValues(method, route, statusLabel(status), outcomeFor(status)).Inc()
}

func statusLabel(status int) string {
	if status == 0 {
		return "none"
	}
	return strconv.Itoa(status)
}

func outcomeFor(status int) string {
	switch {
	case status == 0:
		return "transport_error"
	case status < 400:
		return "success"
	case status < 500:
		return "client_error"
	default:
		return "server_error"
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
