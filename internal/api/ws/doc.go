// Package ws streams conformance runs and the participant debug console
// over a WebSocket.
//
// Message Types (Client → Server):
//   - run: Run the corpora ("suite": all, malicious or benign)
//   - validate: Screen "code" and return the report
//   - subscribe_console: Stream the participant's console entries
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - system: Connection established
//   - run_start, case_result, report, complete: Conformance run progress
//   - validation: Validator report
//   - subscribed, console: Console snapshot and live entries
//   - pong, error
//
// Example Usage:
//
//	handler := ws.NewHandler(v, workspaces, metrics, logger, cfg.Server.CORSOrigins)
//	router.GET("/security/stream", middleware.Session(), handler.HandleConnection)
package ws
