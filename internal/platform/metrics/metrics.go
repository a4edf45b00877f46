package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the feed wall.
type Metrics struct {
	registry          *prometheus.Registry
	requestsTotal     prometheus.Counter
	errorsTotal       prometheus.Counter
	activeSessions    prometheus.Gauge
	tierEscalations   *prometheus.CounterVec
	autoSkipsTotal    prometheus.Counter
	proxyFetchesTotal *prometheus.CounterVec
	sourceCallbacks   *prometheus.CounterVec
	catalogSize       prometheus.Gauge
}

// New creates and registers Prometheus metrics for the feed wall.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feedwall_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feedwall_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "feedwall_active_sessions",
		Help: "Number of viewer sessions currently open",
	})
	tierEscalations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedwall_tier_escalations_total",
		Help: "Fallback tier escalations, labelled by the tier escalated to",
	}, []string{"tier"})
	autoSkipsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feedwall_auto_skips_total",
		Help: "Cameras skipped automatically after exhausting every tier",
	})
	proxyFetchesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedwall_proxy_fetch_total",
		Help: "Upstream image fetches made by the proxy, labelled by outcome",
	}, []string{"mode", "outcome"})
	sourceCallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedwall_source_callbacks_total",
		Help: "Source load/error callbacks from renderers, labelled by kind and result",
	}, []string{"kind", "result"})
	catalogSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "feedwall_catalog_cameras",
		Help: "Number of cameras in the most recently loaded catalog",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		activeSessions,
		tierEscalations,
		autoSkipsTotal,
		proxyFetchesTotal,
		sourceCallbacks,
		catalogSize,
	)

	return &Metrics{
		registry:          registry,
		requestsTotal:     requestsTotal,
		errorsTotal:       errorsTotal,
		activeSessions:    activeSessions,
		tierEscalations:   tierEscalations,
		autoSkipsTotal:    autoSkipsTotal,
		proxyFetchesTotal: proxyFetchesTotal,
		sourceCallbacks:   sourceCallbacks,
		catalogSize:       catalogSize,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// SetActiveSessions sets the active sessions gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// IncTierEscalation counts a fallback escalation into tier.
func (m *Metrics) IncTierEscalation(tier string) {
	m.tierEscalations.WithLabelValues(tier).Inc()
}

// IncAutoSkips increments the auto-skip counter.
func (m *Metrics) IncAutoSkips() {
	m.autoSkipsTotal.Inc()
}

// IncProxyFetch counts one upstream fetch. mode is "single", "stream",
// "thumbnail", "snapshot" or "ipinfo"; outcome is "ok", "no_frame",
// "too_large" or "error".
func (m *Metrics) IncProxyFetch(mode, outcome string) {
	m.proxyFetchesTotal.WithLabelValues(mode, outcome).Inc()
}

// IncSourceCallback counts one renderer callback. kind is "loaded" or
// "error"; result is "accepted", "stale" or "rejected".
func (m *Metrics) IncSourceCallback(kind, result string) {
	m.sourceCallbacks.WithLabelValues(kind, result).Inc()
}

// SetCatalogSize records the size of the loaded catalog.
func (m *Metrics) SetCatalogSize(n int) {
	m.catalogSize.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. active sessions).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
