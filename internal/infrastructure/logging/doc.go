// Package logging provides structured logging using uber/zap and the
// diagnostic sinks shared by the sandbox and the host page.
//
// Loggers write JSON by default and colored console lines in development.
// Component and Session derive child loggers that share the field keys
// declared here.
//
// Sinks:
//   - ZapSink: forwards sandbox console output to the structured logger
//   - RingLog: bounded in-memory buffer backing the on-page debug console
//   - MultiSink: fan-out to several sinks
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	ring := logging.NewRingLog(logging.DefaultRingCapacity)
//	sink := logging.NewMultiSink(ring, logging.NewZapSink(logger))
//	sink.Log(zapcore.WarnLevel, "timer callback threw")
package logging
