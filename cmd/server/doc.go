// Package main is the entry point for the scriptgate HTTP server.
//
// The server screens participant code with the rule engine, runs admitted
// code in a disposable sandbox realm and transplants the resulting canvas
// into the participant's host page.
//
// Configuration comes from environment variables (see config.Load); the
// flags below override them.
//
// Usage:
//
//	./server --port 8000
//	./server --dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
