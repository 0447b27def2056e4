package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/angeloszaimis/edge-router/config"
	"github.com/angeloszaimis/edge-router/internal/circuitbreaker"
	"github.com/angeloszaimis/edge-router/internal/handler"
	"github.com/angeloszaimis/edge-router/internal/httpserver"
	"github.com/angeloszaimis/edge-router/internal/metrics"
	"github.com/angeloszaimis/edge-router/internal/routing"
	"github.com/angeloszaimis/edge-router/internal/runtime"
	"github.com/angeloszaimis/edge-router/pkg/logger"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to the configuration file")
	testOnly := pflag.BoolP("test", "t", false, "validate the configuration and exit")
	pflag.Parse()

	cfg, err := config.Load(*configPath)

	if *testOnly {
		if err != nil {
			slog.Error("configuration test failed", slog.Any("err", err))
			os.Exit(1)
		}
		slog.Info("configuration test successful")
		return
	}

	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)
	collector.Start(ctx)

	holder := routing.NewHolder()
	rt := runtime.New(ctx, log, holder, collector)
	if err := rt.Apply(cfg); err != nil {
		log.Error("Failed to apply configuration", slog.Any("err", err))
		os.Exit(1)
	}

	breakers, err := newBreakerRegistry(cfg)
	if err != nil {
		log.Error("Failed to configure circuit breakers", slog.Any("err", err))
		os.Exit(1)
	}

	proxyHandler := handler.NewProxyHandler(log, holder, breakers, collector)
	mux := setupRouter(proxyHandler, collector)

	opts, err := serverOptions(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to build server options", slog.Any("err", err))
		os.Exit(1)
	}

	srv, err := httpserver.New(cfg.Server.Address, mux, opts)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	watchReloads(ctx, *configPath, rt, log)

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	log.Info("Router started", slog.String("address", cfg.Server.Address))

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting router", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func newBreakerRegistry(cfg *config.Config) (*circuitbreaker.Registry, error) {
	resetTimeout, err := time.ParseDuration(cfg.CircuitBreaker.ResetTimeout)
	if err != nil {
		return nil, err
	}

	return circuitbreaker.NewRegistry(cfg.CircuitBreaker.FailureThreshold, resetTimeout), nil
}

func serverOptions(ctx context.Context, cfg *config.Config, log *slog.Logger) (httpserver.Options, error) {
	var opts httpserver.Options
	var err error

	if opts.ReadTimeout, err = time.ParseDuration(cfg.Server.ReadTimeout); err != nil {
		return opts, err
	}
	if opts.WriteTimeout, err = time.ParseDuration(cfg.Server.WriteTimeout); err != nil {
		return opts, err
	}
	if opts.IdleTimeout, err = time.ParseDuration(cfg.Server.IdleTimeout); err != nil {
		return opts, err
	}

	if cfg.Server.TLS.Enabled() {
		reloadInterval, err := time.ParseDuration(cfg.Server.TLS.ReloadInterval)
		if err != nil {
			return opts, err
		}

		reloader := httpserver.NewCertReloader(
			cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile, reloadInterval, log)
		if err := reloader.Start(ctx); err != nil {
			return opts, err
		}

		opts.TLS = reloader.TLSConfig()
	}

	return opts, nil
}

// watchReloads wires the two reload triggers: SIGHUP and the config file
// changing on disk. A rejected reload keeps the active snapshot.
func watchReloads(ctx context.Context, configPath string, rt *runtime.Runtime, log *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				log.Info("Reload signal received")
				cfg, err := config.Load(configPath)
				if err != nil {
					log.Error("Reload rejected, keeping previous configuration", slog.Any("err", err))
					continue
				}
				if err := rt.Apply(cfg); err != nil {
					log.Error("Reload rejected, keeping previous configuration", slog.Any("err", err))
				}
			}
		}
	}()

	err := config.Watch(configPath,
		func(cfg *config.Config) {
			log.Info("Configuration file changed")
			if err := rt.Apply(cfg); err != nil {
				log.Error("Reload rejected, keeping previous configuration", slog.Any("err", err))
			}
		},
		func(err error) {
			log.Error("Reload rejected, keeping previous configuration", slog.Any("err", err))
		},
	)
	if err != nil {
		log.Warn("Config file watching disabled", slog.Any("err", err))
	}
}
