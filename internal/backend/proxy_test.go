package backend_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/edge-router/internal/backend"
)

func TestBackend(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Backend Suite")
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	Expect(err).NotTo(HaveOccurred())
	return u
}

var _ = Describe("Backend", func() {
	var (
		testURL *url.URL
		b       *backend.Backend
	)

	BeforeEach(func() {
		testURL = mustParseURL("http://localhost:8081")
		b = backend.New(testURL, 1, http.DefaultTransport, slog.Default())
	})

	Describe("New", func() {
		It("should create a backend with the correct URL", func() {
			Expect(b).NotTo(BeNil())
			Expect(b.URL()).To(Equal(testURL))
		})

		It("should start healthy", func() {
			Expect(b.IsHealthy()).To(BeTrue())
		})

		It("should have zero active connections", func() {
			Expect(b.ActiveConnections()).To(Equal(0))
		})

		It("should provide a reverse proxy", func() {
			Expect(b.ReverseProxy()).NotTo(BeNil())
		})

		It("should keep the configured weight", func() {
			weighted := backend.New(testURL, 3, http.DefaultTransport, slog.Default())
			Expect(weighted.Weight()).To(Equal(3))
		})
	})

	Describe("Health Management", func() {
		It("should report a change when toggling health", func() {
			Expect(b.SetHealthy(false)).To(BeTrue())
			Expect(b.IsHealthy()).To(BeFalse())

			Expect(b.SetHealthy(true)).To(BeTrue())
			Expect(b.IsHealthy()).To(BeTrue())
		})

		It("should not report a change for the same state", func() {
			Expect(b.SetHealthy(true)).To(BeFalse())
		})
	})

	Describe("Connection Tracking", func() {
		It("should increment and decrement", func() {
			b.IncrementConn()
			b.IncrementConn()
			Expect(b.ActiveConnections()).To(Equal(2))

			b.DecrementConn()
			Expect(b.ActiveConnections()).To(Equal(1))
		})

		It("should not go below zero", func() {
			b.DecrementConn()
			Expect(b.ActiveConnections()).To(Equal(0))
		})

		It("should be safe under concurrent access", func() {
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					b.IncrementConn()
					b.DecrementConn()
				}()
			}
			wg.Wait()
			Expect(b.ActiveConnections()).To(Equal(0))
		})
	})

	Describe("EWMA Response Time", func() {
		It("should return zero before any response", func() {
			Expect(b.EWMATime()).To(Equal(time.Duration(0)))
		})

		It("should use the first sample as-is", func() {
			b.RecordResponse(100 * time.Millisecond)
			Expect(b.EWMATime()).To(Equal(100 * time.Millisecond))
		})

		It("should smooth subsequent samples", func() {
			b.RecordResponse(100 * time.Millisecond)
			b.RecordResponse(200 * time.Millisecond)

			ewma := b.EWMATime()
			Expect(ewma).To(BeNumerically(">", 100*time.Millisecond))
			Expect(ewma).To(BeNumerically("<", 200*time.Millisecond))
		})
	})

	Describe("Forwarding", func() {
		It("should relay request and response bodies verbatim", func() {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte("upstream says hi"))
			}))
			defer upstream.Close()

			bk := backend.New(mustParseURL(upstream.URL), 1, http.DefaultTransport, slog.Default())

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/anything", nil)
			bk.ReverseProxy().ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(rec.Body.String()).To(Equal("upstream says hi"))
		})

		It("should answer Bad Gateway when the upstream is unreachable", func() {
			bk := backend.New(mustParseURL("http://127.0.0.1:1"), 1, http.DefaultTransport, slog.Default())

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
			bk.ReverseProxy().ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadGateway))
		})

		It("should answer Gateway Timeout when the upstream stalls", func() {
			release := make(chan struct{})

			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				<-release
			}))
			defer upstream.Close()
			defer close(release)

			transport := &http.Transport{ResponseHeaderTimeout: 50 * time.Millisecond}
			defer transport.CloseIdleConnections()

			bk := backend.New(mustParseURL(upstream.URL), 1, transport, slog.Default())

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/slow", nil)
			bk.ReverseProxy().ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusGatewayTimeout))
		})
	})
})
