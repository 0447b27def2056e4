package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// promMetrics mirrors the event stream into a prometheus registry so the
// router can be scraped alongside the JSON stats endpoint.
type promMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	backendHealthy  *prometheus.GaugeVec
}

func newPromMetrics(reg prometheus.Registerer) *promMetrics {
	factory := promauto.With(reg)

	return &promMetrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edge_router",
			Name:      "requests_total",
			Help:      "Requests forwarded per pool, backend and status code.",
		}, []string{"pool", "backend", "code"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "edge_router",
			Name:      "request_duration_seconds",
			Help:      "Upstream round-trip latency per pool and backend.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"pool", "backend"}),
		backendHealthy: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "edge_router",
			Name:      "backend_healthy",
			Help:      "Whether a backend currently passes its health probe.",
		}, []string{"pool", "backend"}),
	}
}

func (p *promMetrics) observeResponse(pool, backend string, duration time.Duration, statusCode int) {
	p.requestsTotal.WithLabelValues(pool, backend, strconv.Itoa(statusCode)).Inc()
	p.requestDuration.WithLabelValues(pool, backend).Observe(duration.Seconds())
}

func (p *promMetrics) observeHealth(pool, backend string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	p.backendHealthy.WithLabelValues(pool, backend).Set(value)
}
