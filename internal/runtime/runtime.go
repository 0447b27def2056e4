package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/angeloszaimis/edge-router/config"
	"github.com/angeloszaimis/edge-router/internal/healthcheck"
	"github.com/angeloszaimis/edge-router/internal/metrics"
	"github.com/angeloszaimis/edge-router/internal/routing"
)

// Runtime owns the active routing snapshot and its supporting goroutines.
// Apply builds a complete new generation (pools, backends, rule table,
// health checkers) from a validated configuration and swaps it in
// atomically; a failure leaves the previous generation untouched.
type Runtime struct {
	logger    *slog.Logger
	holder    *routing.Holder
	collector *metrics.Collector
	baseCtx   context.Context

	mu           sync.Mutex
	cancelHealth context.CancelFunc
	transport    *http.Transport
}

func New(ctx context.Context, logger *slog.Logger, holder *routing.Holder, collector *metrics.Collector) *Runtime {
	return &Runtime{
		logger:    logger,
		holder:    holder,
		collector: collector,
		baseCtx:   ctx,
	}
}

// Holder returns the snapshot holder the request path reads from.
func (rt *Runtime) Holder() *routing.Holder {
	return rt.holder
}

// Apply swaps in a new snapshot built from cfg. Health checkers of the
// previous generation are stopped; in-flight requests finish against the
// snapshot they already loaded.
func (rt *Runtime) Apply(cfg *config.Config) error {
	healthInterval, err := time.ParseDuration(cfg.HealthCheck.Interval)
	if err != nil {
		return fmt.Errorf("health_check interval: %w", err)
	}

	transport, err := buildTransport(cfg.Upstream)
	if err != nil {
		return err
	}

	snap, err := buildSnapshot(cfg, transport, rt.logger)
	if err != nil {
		return err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	healthCtx, cancel := context.WithCancel(rt.baseCtx)
	for _, p := range snap.Pools {
		for _, b := range p.Backends() {
			go healthcheck.HealthCheck(healthCtx, p.Name(), b, healthInterval,
				cfg.HealthCheck.Path, rt.logger, rt.collector)
		}
	}

	previous := rt.holder.Swap(snap)

	if rt.cancelHealth != nil {
		rt.cancelHealth()
	}
	rt.cancelHealth = cancel

	if rt.transport != nil {
		rt.transport.CloseIdleConnections()
	}
	rt.transport = transport

	if previous == nil {
		rt.logger.Info("Configuration applied",
			slog.Int("rules", snap.Table.Len()),
			slog.Int("pools", len(snap.Pools)))
	} else {
		rt.logger.Info("Configuration reloaded",
			slog.Int("rules", snap.Table.Len()),
			slog.Int("pools", len(snap.Pools)))
	}

	return nil
}
