package healthcheck

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/angeloszaimis/edge-router/internal/backend"
	"github.com/angeloszaimis/edge-router/internal/metrics"
)

const probeTimeout = 5 * time.Second

// HealthCheck periodically probes a backend's health endpoint and updates
// its health status. It runs until ctx is cancelled, which happens when a
// configuration reload retires the snapshot this backend belongs to.
func HealthCheck(
	ctx context.Context,
	poolName string,
	b *backend.Backend,
	interval time.Duration,
	probePath string,
	logger *slog.Logger,
	collector *metrics.Collector,
) {
	client := &http.Client{
		Timeout: probeTimeout,
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Health check stopped",
				slog.String("pool", poolName),
				slog.String("server", b.URL().String()))
			return

		case <-ticker.C:
			probe(ctx, client, poolName, b, probePath, logger, collector)
		}
	}
}

func probe(
	ctx context.Context,
	client *http.Client,
	poolName string,
	b *backend.Backend,
	probePath string,
	logger *slog.Logger,
	collector *metrics.Collector,
) {
	healthURL := b.URL().ResolveReference(&url.URL{Path: probePath})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL.String(), nil)
	if err != nil {
		return
	}

	res, err := client.Do(req)
	if err != nil {
		report(poolName, b, false, logger, collector)
		return
	}

	io.Copy(io.Discard, res.Body)
	res.Body.Close()

	report(poolName, b, res.StatusCode == http.StatusOK, logger, collector)
}

func report(poolName string, b *backend.Backend, healthy bool, logger *slog.Logger, collector *metrics.Collector) {
	if !b.SetHealthy(healthy) {
		return
	}

	if healthy {
		logger.Info("Server is back up",
			slog.String("pool", poolName),
			slog.String("server", b.URL().String()))
	} else {
		logger.Warn("Server is down",
			slog.String("pool", poolName),
			slog.String("server", b.URL().String()))
	}

	if collector != nil {
		collector.Emit(metrics.MetricEvent{
			Type:      metrics.EventHealthChanged,
			Timestamp: time.Now(),
			Pool:      poolName,
			Backend:   b.URL().String(),
			Healthy:   healthy,
		})
	}
}
