package main

import (
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/flowvet/flowvet/internal/app"
	"github.com/flowvet/flowvet/internal/config"
	"github.com/flowvet/flowvet/internal/policy"
	"github.com/flowvet/flowvet/internal/policy/cache"
	"github.com/flowvet/flowvet/internal/policyfile"
	"github.com/flowvet/flowvet/internal/transport/lambdatransport"
)

func main() {
	cfg := config.Load()

	latency := policy.NewAsyncStatementLatencyObserver(policy.NewStatementLatencyLogger(log.Default()), cfg.ObsBuffer)
	defer latency.Close()

	runner := policy.NewRunner(
		policy.WithParallelism(cfg.Parallelism),
		policy.WithStatementLatencyObserver(latency),
		policy.WithReporter(policy.NewLogReporter(log.Default())),
	)
	svc := app.NewService(policyfile.NewLoader(), runner, cache.NewInMemory(cfg.CacheMaxItems))
	h := lambdatransport.NewHandler(svc)

	lambda.Start(h.Verify)
}
