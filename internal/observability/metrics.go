package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Downstream call outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeCircuitOpen = "circuit_open"
)

// Metrics holds all Prometheus metrics for a relay service.
// All methods are safe on a nil receiver so components can run without metrics.
type Metrics struct {
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	activeRequests     prometheus.Gauge
	downstreamTotal    *prometheus.CounterVec
	downstreamDuration *prometheus.HistogramVec
	fallbacksTotal     *prometheus.CounterVec
	circuitBreaker     *prometheus.GaugeVec
	certificateExpiry  *prometheus.GaugeVec
	tlsReloads         *prometheus.CounterVec
	buildInfo          *prometheus.GaugeVec
	registry           *prometheus.Registry
}

// NewMetrics creates a new Metrics instance on a private registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "avarelay"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Inbound HTTP request duration in seconds",
			Buckets: []float64{
				.001, .005, .01, .025, .05,
				.1, .25, .5, 1, 2.5, 5, 10,
			},
		},
		[]string{"method", "route"},
	)

	m.activeRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_requests",
			Help:      "Number of in-flight inbound requests",
		},
	)

	m.downstreamTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downstream_requests_total",
			Help:      "Total number of calls to the next hop by outcome",
		},
		[]string{"target", "outcome"},
	)

	m.downstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "downstream_duration_seconds",
			Help:      "Duration of calls to the next hop in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"target"},
	)

	m.fallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_responses_total",
			Help:      "Total number of fail-soft sentinel responses returned",
		},
		[]string{"target"},
	)

	m.circuitBreaker = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	m.certificateExpiry = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tls_certificate_expiry_timestamp_seconds",
			Help:      "Unix time at which a loaded certificate expires",
		},
		[]string{"store", "subject"},
	)

	m.tlsReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tls_reloads_total",
			Help:      "Total number of TLS material reloads by result",
		},
		[]string{"store", "result"},
	)

	m.buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "role"},
	)

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.activeRequests,
		m.downstreamTotal,
		m.downstreamDuration,
		m.fallbacksTotal,
		m.circuitBreaker,
		m.certificateExpiry,
		m.tlsReloads,
		m.buildInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RecordRequest records a completed inbound request.
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveRequests increments the in-flight gauge.
func (m *Metrics) IncActiveRequests() {
	if m == nil {
		return
	}
	m.activeRequests.Inc()
}

// DecActiveRequests decrements the in-flight gauge.
func (m *Metrics) DecActiveRequests() {
	if m == nil {
		return
	}
	m.activeRequests.Dec()
}

// RecordDownstream records the outcome of a call to the next hop.
func (m *Metrics) RecordDownstream(target, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.downstreamTotal.WithLabelValues(target, outcome).Inc()
	m.downstreamDuration.WithLabelValues(target).Observe(duration.Seconds())
}

// RecordFallback records a sentinel response substituted for a failed call.
func (m *Metrics) RecordFallback(target string) {
	if m == nil {
		return
	}
	m.fallbacksTotal.WithLabelValues(target).Inc()
}

// SetCircuitBreakerState sets the state gauge of a named breaker.
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.circuitBreaker.WithLabelValues(name).Set(float64(state))
}

// SetCertificateExpiry publishes the expiry time of a loaded certificate.
func (m *Metrics) SetCertificateExpiry(store, subject string, notAfter time.Time) {
	if m == nil {
		return
	}
	m.certificateExpiry.WithLabelValues(store, subject).Set(float64(notAfter.Unix()))
}

// RecordTLSReload records a reload attempt of key or trust material.
func (m *Metrics) RecordTLSReload(store, result string) {
	if m == nil {
		return
	}
	m.tlsReloads.WithLabelValues(store, result).Inc()
}

// SetBuildInfo publishes the running version and role.
func (m *Metrics) SetBuildInfo(version, role string) {
	if m == nil {
		return
	}
	m.buildInfo.WithLabelValues(version, role).Set(1)
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
