package handler

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/angeloszaimis/edge-router/internal/backend"
	"github.com/angeloszaimis/edge-router/internal/circuitbreaker"
	"github.com/angeloszaimis/edge-router/internal/metrics"
	"github.com/angeloszaimis/edge-router/internal/routing"
)

const defaultHealthPath = "/health"

// ProxyHandler serves every inbound request: it answers the router's own
// health path, enforces the body size limit, matches the path against the
// active route table, reserves a backend from the matched pool and relays
// the request through the backend's reverse proxy.
type ProxyHandler struct {
	logger           *slog.Logger
	holder           *routing.Holder
	breakers         *circuitbreaker.Registry
	metricsCollector *metrics.Collector
}

func NewProxyHandler(
	logger *slog.Logger,
	holder *routing.Holder,
	breakers *circuitbreaker.Registry,
	collector *metrics.Collector,
) *ProxyHandler {
	return &ProxyHandler{
		logger:           logger,
		holder:           holder,
		breakers:         breakers,
		metricsCollector: collector,
	}
}

func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap := h.holder.Load()

	// Liveness must not depend on upstream state or even on having a
	// loaded configuration.
	if r.URL.Path == healthPath(snap) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
		return
	}

	if snap == nil {
		http.Error(w, "configuration not loaded", http.StatusServiceUnavailable)
		return
	}

	if snap.MaxBodyBytes > 0 {
		if r.ContentLength > snap.MaxBodyBytes {
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge),
				http.StatusRequestEntityTooLarge)
			return
		}
		// Chunked bodies have no declared length; bound them too.
		r.Body = http.MaxBytesReader(w, r.Body, snap.MaxBodyBytes)
	}

	rule, ok := snap.Table.Match(r.URL.Path)
	if !ok {
		h.logger.Warn("No route matched", slog.String("path", r.URL.Path))
		http.Error(w, "no route", http.StatusServiceUnavailable)
		return
	}

	p, ok := snap.Pool(rule.Pool)
	if !ok {
		h.logger.Error("Route references missing pool",
			slog.String("path", r.URL.Path),
			slog.String("pool", rule.Pool))
		http.Error(w, "no route", http.StatusServiceUnavailable)
		return
	}

	clientIP := extractClientIP(r)

	nextServer, err := p.GetAndReserve(clientIP, func(b *backend.Backend) bool {
		return h.breakers.GetBreaker(b.URL().String()).Allow()
	})
	if err != nil {
		h.logger.Warn("No available backends in pool",
			slog.String("pool", p.Name()),
			slog.String("client", clientIP))
		http.Error(w, "No healthy server available", http.StatusServiceUnavailable)
		return
	}
	defer nextServer.DecrementConn()

	h.emitEvent(metrics.MetricEvent{
		Type:      metrics.EventRequestReceived,
		Timestamp: time.Now(),
		Pool:      p.Name(),
		Backend:   nextServer.URL().String(),
	})

	h.logger.Debug("Forwarding to backend",
		slog.String("client", clientIP),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("pool", p.Name()),
		slog.String("backend", nextServer.URL().String()))

	if r.TLS != nil {
		r.Header.Set("X-Forwarded-Proto", "https")
	} else {
		r.Header.Set("X-Forwarded-Proto", "http")
	}

	start := time.Now()
	wrapped := &policyWriter{ResponseWriter: w, rule: rule, statusCode: http.StatusOK}
	nextServer.ReverseProxy().ServeHTTP(wrapped, r)
	duration := time.Since(start)

	nextServer.RecordResponse(duration)
	h.recordBreaker(nextServer, wrapped.statusCode)

	h.emitEvent(metrics.MetricEvent{
		Type:       metrics.EventResponseCompleted,
		Timestamp:  time.Now(),
		Pool:       p.Name(),
		Backend:    nextServer.URL().String(),
		Duration:   duration,
		StatusCode: wrapped.statusCode,
	})
}

// recordBreaker counts gateway-level failures against the backend's
// breaker; anything the upstream answered itself counts as a success.
func (h *ProxyHandler) recordBreaker(b *backend.Backend, statusCode int) {
	cb := h.breakers.GetBreaker(b.URL().String())

	switch statusCode {
	case http.StatusBadGateway, http.StatusGatewayTimeout:
		cb.RecordFailure()
	default:
		cb.RecordSuccess()
	}
}

func (h *ProxyHandler) emitEvent(event metrics.MetricEvent) {
	if h.metricsCollector == nil {
		return
	}
	h.metricsCollector.Emit(event)
}

func healthPath(snap *routing.Snapshot) string {
	if snap != nil && snap.HealthPath != "" {
		return snap.HealthPath
	}
	return defaultHealthPath
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}
