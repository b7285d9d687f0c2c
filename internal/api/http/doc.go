// Package http exposes the admission pipeline over REST.
//
// Participant routes resolve a session from the X-Session-ID header or the
// session_id cookie and operate on that participant's workspace:
//
//	GET    /               host page with the game container
//	GET    /code           stored code or the starter template
//	POST   /save-code      validate and store {code, file}
//	POST   /upload-code    multipart "file" upload of game.js
//	POST   /execute        run {code} or the stored code, transplant the canvas
//	POST   /log-error      record a client error, returns its ERR- id
//	GET    /debug-console  console as sanitized HTML (?format=json)
//	DELETE /debug-console  clear the console
//
// Service routes:
//
//	GET  /health           workspace and metric snapshot
//	GET  /metrics          Prometheus exposition
//	POST /validate         validator report for {code}
//	GET  /security/report  conformance report (?format=html|json|text, ?suite=)
//
// Refusals map to statuses: validation 422, execution 400, setup 500,
// unsupported upload 415, bad file or session 400, workspace limit 503.
package http
