// Package config provides 12-factor configuration for the admission server.
//
// Configuration is loaded from environment variables with sensible defaults.
//
// Configuration Sections:
//   - Server: HTTP listen address, body limit, CORS origins
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Validator: Structural limits of the rule engine
//   - Sandbox: Realm timeout, teardown grace, timer and stack limits
//   - Submission: Where participant code is stored
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	engine, err := validator.New(cfg.ValidatorConfig())
//
// Environment Variables:
//   - PORT, HOST, MAX_BODY_BYTES, CORS_ORIGINS
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - MAX_CODE_SIZE, MAX_CONCATENATIONS, MAX_ENTROPY
//   - SANDBOX_TIMEOUT, SANDBOX_TEARDOWN_GRACE, SANDBOX_MAX_CALL_STACK,
//     SANDBOX_MAX_TIMERS, HOST_CONTAINER_ID
//   - SUBMISSION_DIR
package config
