// Package metrics exposes Prometheus instrumentation of the admission pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "productreviews"

// Rejection reasons of the rate limiter
const (
	ReasonLimit = "limit"
	ReasonBot   = "bot"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry         *prometheus.Registry
	requests         *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	rateLimited      *prometheus.CounterVec
	versionFallbacks *prometheus.CounterVec
	authFailures     *prometheus.CounterVec
}

// New creates the collectors and registers them in reg
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by the rate limiter by route class and reason.",
		}, []string{"class", "reason"}),
		versionFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "version_fallbacks_total",
			Help:      "Requests diverted to the fallback handler by required version.",
		}, []string{"required"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Requests rejected by the auth gate by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.requests, m.duration, m.rateLimited, m.versionFallbacks, m.authFailures)

	return m
}

// ObserveRequest records a finished HTTP request
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// RateLimited records a rate limiter rejection
func (m *Metrics) RateLimited(class, reason string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(class, reason).Inc()
}

// VersionFallback records a request diverted by the version gate
func (m *Metrics) VersionFallback(required string) {
	if m == nil {
		return
	}
	m.versionFallbacks.WithLabelValues(required).Inc()
}

// AuthFailure records an auth gate rejection
func (m *Metrics) AuthFailure(reason string) {
	if m == nil {
		return
	}
	m.authFailures.WithLabelValues(reason).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the registry the collectors are registered in
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
