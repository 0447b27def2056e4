package main

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/edge-router/config"
	"github.com/angeloszaimis/edge-router/internal/circuitbreaker"
	"github.com/angeloszaimis/edge-router/internal/handler"
	"github.com/angeloszaimis/edge-router/internal/metrics"
	"github.com/angeloszaimis/edge-router/internal/routing"
)

func TestCmd(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Cmd Suite")
}

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Address:      ":8080",
			Environment:  config.EnvDev,
			ReadTimeout:  "15s",
			WriteTimeout: "15s",
			IdleTimeout:  "60s",
		},
		CircuitBreaker: config.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     "30s",
		},
	}
}

var _ = Describe("newBreakerRegistry", func() {
	It("should build a registry from the config", func() {
		registry, err := newBreakerRegistry(baseConfig())
		Expect(err).NotTo(HaveOccurred())
		Expect(registry).NotTo(BeNil())
	})

	It("should reject a malformed reset timeout", func() {
		cfg := baseConfig()
		cfg.CircuitBreaker.ResetTimeout = "soon"

		_, err := newBreakerRegistry(cfg)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("serverOptions", func() {
	It("should parse the configured timeouts", func() {
		opts, err := serverOptions(context.Background(), baseConfig(), slog.Default())
		Expect(err).NotTo(HaveOccurred())
		Expect(opts.ReadTimeout).To(Equal(15 * time.Second))
		Expect(opts.WriteTimeout).To(Equal(15 * time.Second))
		Expect(opts.IdleTimeout).To(Equal(60 * time.Second))
		Expect(opts.TLS).To(BeNil())
	})

	It("should reject a malformed timeout", func() {
		cfg := baseConfig()
		cfg.Server.ReadTimeout = "fast"

		_, err := serverOptions(context.Background(), cfg, slog.Default())
		Expect(err).To(HaveOccurred())
	})

	It("should fail when the TLS certificate is missing", func() {
		cfg := baseConfig()
		cfg.Server.TLS = config.TLSConfig{
			CertFile:       "/nonexistent/server.crt",
			KeyFile:        "/nonexistent/server.key",
			ReloadInterval: "5m",
		}

		_, err := serverOptions(context.Background(), cfg, slog.Default())
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("setupRouter", func() {
	It("should expose the metrics endpoints alongside the proxy", func() {
		collector := metrics.NewCollector(10, slog.Default())
		proxyHandler := handler.NewProxyHandler(slog.Default(), routing.NewHolder(),
			circuitbreaker.NewRegistry(5, 30*time.Second), collector)

		mux := setupRouter(proxyHandler, collector)

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/stats", nil))
		Expect(rec.Code).To(Equal(200))

		rec = httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		Expect(rec.Code).To(Equal(200))

		// No configuration loaded yet: proxied paths fail closed, the
		// health path still answers.
		rec = httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/users", nil))
		Expect(rec.Code).To(Equal(503))

		rec = httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
		Expect(rec.Code).To(Equal(200))
	})
})
