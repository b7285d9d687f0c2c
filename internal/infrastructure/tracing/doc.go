/*
Package tracing provides lightweight request tracing for the admission server.

# Overview

Spans carry a trace id propagated through X-Trace-ID and X-Span-ID headers.
Finished spans are queued and written as structured zap log lines by a
background collector, so tracing never blocks a request.

# Usage

	tracer := tracing.New("scriptgate", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	err := tracer.Trace(ctx, "sandbox.execute", func(ctx context.Context) error {
		_, err := runner.Execute(ctx, code)
		return err
	})

# Trace Format

  - X-Trace-ID: Unique identifier for entire request flow
  - X-Span-ID: Identifier for current operation
*/
package tracing
