/*
Package monitoring provides Prometheus metrics for the admission pipeline.

# Overview

Metrics live on a private registry created by NewMetrics. The collector
tracks HTTP traffic, validator verdicts and findings, sandbox executions and
session lifetimes, and the rates of the most recent harness run.

*Metrics satisfies the sandbox runner's Metrics interface, so it can be
passed straight to sandbox.WithMetrics.

# Usage

	metrics := monitoring.NewMetrics()

	engine := monitoring.InstrumentValidator(validator.Default(), metrics)
	runner := sandbox.NewRunner(cfg, engine, sandbox.WithMetrics(metrics))

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "submission", "save")
	// ... perform operation ...
	timer.Stop("success")
*/
package monitoring
