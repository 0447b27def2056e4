package healthcheck_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/edge-router/internal/backend"
	"github.com/angeloszaimis/edge-router/internal/healthcheck"
)

func TestHealthCheck(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "HealthCheck Suite")
}

var _ = Describe("HealthCheck", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
	})

	AfterEach(func() {
		cancel()
	})

	newBackend := func(raw string) *backend.Backend {
		u, err := url.Parse(raw)
		Expect(err).NotTo(HaveOccurred())
		return backend.New(u, 1, http.DefaultTransport, slog.Default())
	}

	It("should mark a responding backend healthy", func() {
		var healthy atomic.Bool
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" && healthy.Load() {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer upstream.Close()

		b := newBackend(upstream.URL)
		b.SetHealthy(false)
		healthy.Store(true)

		go healthcheck.HealthCheck(ctx, "backend", b, 10*time.Millisecond, "/health", slog.Default(), nil)

		Eventually(b.IsHealthy, "2s", "10ms").Should(BeTrue())
	})

	It("should mark a failing backend unhealthy", func() {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer upstream.Close()

		b := newBackend(upstream.URL)

		go healthcheck.HealthCheck(ctx, "backend", b, 10*time.Millisecond, "/health", slog.Default(), nil)

		Eventually(b.IsHealthy, "2s", "10ms").Should(BeFalse())
	})

	It("should mark an unreachable backend unhealthy", func() {
		b := newBackend("http://127.0.0.1:1")

		go healthcheck.HealthCheck(ctx, "backend", b, 10*time.Millisecond, "/health", slog.Default(), nil)

		Eventually(b.IsHealthy, "2s", "10ms").Should(BeFalse())
	})

	It("should stop when the context is cancelled", func(done SpecContext) {
		b := newBackend("http://127.0.0.1:1")

		finished := make(chan struct{})
		go func() {
			healthcheck.HealthCheck(ctx, "backend", b, 10*time.Millisecond, "/health", slog.Default(), nil)
			close(finished)
		}()

		cancel()
		Eventually(finished).Should(BeClosed())
	}, SpecTimeout(2*time.Second))
})
