// Package middleware provides the gin middleware stack of the HTTP API:
// CORS, per-IP and global rate limits, request body limits and participant
// session resolution.
package middleware
