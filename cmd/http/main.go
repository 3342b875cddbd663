package main

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowvet/flowvet/internal/app"
	"github.com/flowvet/flowvet/internal/config"
	"github.com/flowvet/flowvet/internal/policy"
	"github.com/flowvet/flowvet/internal/policy/cache"
	"github.com/flowvet/flowvet/internal/policyfile"
	"github.com/flowvet/flowvet/internal/transport/httptransport"
)

func main() {
	cfg := config.Load()

	reg := prometheus.NewRegistry()
	metrics := policy.NewMetrics(reg)
	latency := policy.NewAsyncStatementLatencyObserver(metrics, cfg.ObsBuffer)
	defer latency.Close()

	runner := policy.NewRunner(
		policy.WithParallelism(cfg.Parallelism),
		policy.WithStatementLatencyObserver(latency),
		policy.WithReporter(metrics),
	)
	svc := app.NewService(policyfile.NewLoader(), runner, cache.NewInMemory(cfg.CacheMaxItems))
	h := httptransport.NewHandler(svc)

	mux := http.NewServeMux()
	mux.HandleFunc("/verify", h.Verify)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	log.Printf("listening on %s", cfg.HTTPAddr)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, mux))
}
