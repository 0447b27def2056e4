package runtime

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/angeloszaimis/edge-router/config"
	"github.com/angeloszaimis/edge-router/internal/backend"
	"github.com/angeloszaimis/edge-router/internal/pool"
	"github.com/angeloszaimis/edge-router/internal/routing"
	"github.com/angeloszaimis/edge-router/internal/strategy"
)

// buildTransport assembles the shared upstream transport with the
// configured connect and response-header deadlines. A hung upstream
// surfaces as a timeout error instead of stalling the client forever.
func buildTransport(cfg config.UpstreamConfig) (*http.Transport, error) {
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("upstream dial_timeout: %w", err)
	}
	responseTimeout, err := time.ParseDuration(cfg.ResponseHeaderTimeout)
	if err != nil {
		return nil, fmt.Errorf("upstream response_header_timeout: %w", err)
	}
	idleTimeout, err := time.ParseDuration(cfg.IdleConnTimeout)
	if err != nil {
		return nil, fmt.Errorf("upstream idle_conn_timeout: %w", err)
	}

	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: dialTimeout,
		}).DialContext,
		ResponseHeaderTimeout: responseTimeout,
		IdleConnTimeout:       idleTimeout,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		ForceAttemptHTTP2:     true,
	}, nil
}

func buildPools(cfg *config.Config, transport http.RoundTripper, log *slog.Logger) (map[string]*pool.Pool, error) {
	pools := make(map[string]*pool.Pool, len(cfg.Pools))

	for _, pc := range cfg.Pools {
		strat, err := strategy.New(pc.Strategy, pc.VirtualNodes)
		if err != nil {
			return nil, fmt.Errorf("pool %q: %w", pc.Name, err)
		}

		backends := make([]*backend.Backend, 0, len(pc.Backends))
		for _, bc := range pc.Backends {
			u, err := url.Parse(bc.URL)
			if err != nil {
				return nil, fmt.Errorf("pool %q: backend %q: %w", pc.Name, bc.URL, err)
			}
			backends = append(backends, backend.New(u, bc.Weight, transport, log))
		}

		pools[pc.Name] = pool.New(pc.Name, strat, backends)
	}

	return pools, nil
}

func buildRules(cfg *config.Config) ([]routing.Rule, error) {
	rules := make([]routing.Rule, 0, len(cfg.Routes))

	for _, rc := range cfg.Routes {
		cache, err := routing.ParseCachePolicy(rc.Cache)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", rc.Path, err)
		}

		rules = append(rules, routing.Rule{
			Path:    rc.Path,
			Exact:   rc.Match == config.MatchExact,
			Pool:    rc.Pool,
			Cache:   cache,
			Headers: rc.Headers,
		})
	}

	return rules, nil
}

func buildSnapshot(cfg *config.Config, transport http.RoundTripper, log *slog.Logger) (*routing.Snapshot, error) {
	pools, err := buildPools(cfg, transport, log)
	if err != nil {
		return nil, err
	}

	rules, err := buildRules(cfg)
	if err != nil {
		return nil, err
	}

	return &routing.Snapshot{
		Table:        routing.NewTable(rules, cfg.DefaultPool),
		Pools:        pools,
		HealthPath:   cfg.HealthCheck.Path,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}, nil
}
