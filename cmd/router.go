package main

import (
	"net/http"

	"github.com/angeloszaimis/edge-router/internal/handler"
	"github.com/angeloszaimis/edge-router/internal/metrics"
)

func setupRouter(proxyHandler *handler.ProxyHandler, collector *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/metrics", collector.PrometheusHandler())
	mux.HandleFunc("/stats", collector.StatsHandler())
	mux.Handle("/", proxyHandler)

	return mux
}
