package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/scriptgate/internal/domain/validator"
	"github.com/GriffinCanCode/scriptgate/internal/providers/browser/sandbox"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Logging    LogConfig
	RateLimit  RateLimitConfig
	Validator  ValidatorConfig
	Sandbox    SandboxConfig
	Submission SubmissionConfig
	Workspace  WorkspaceConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string   `envconfig:"PORT" default:"8000"`
	Host         string   `envconfig:"HOST" default:"0.0.0.0"`
	MaxBodyBytes int64    `envconfig:"MAX_BODY_BYTES" default:"262144"`
	CORSOrigins  []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// ValidatorConfig holds the structural limits of the rule engine.
type ValidatorConfig struct {
	MaxCodeSize       int     `envconfig:"MAX_CODE_SIZE" default:"50000"`
	MaxConcatenations int     `envconfig:"MAX_CONCATENATIONS" default:"15"`
	MaxEntropy        float64 `envconfig:"MAX_ENTROPY" default:"4.5"`
}

// SandboxConfig holds realm limits.
type SandboxConfig struct {
	Timeout          time.Duration `envconfig:"SANDBOX_TIMEOUT" default:"5s"`
	TeardownGrace    time.Duration `envconfig:"SANDBOX_TEARDOWN_GRACE" default:"500ms"`
	MaxCallStackSize int           `envconfig:"SANDBOX_MAX_CALL_STACK" default:"1024"`
	MaxTimers        int           `envconfig:"SANDBOX_MAX_TIMERS" default:"256"`
	ContainerID      string        `envconfig:"HOST_CONTAINER_ID" default:"game-container"`
}

// SubmissionConfig holds code storage settings.
type SubmissionConfig struct {
	Dir string `envconfig:"SUBMISSION_DIR" default:"data/users"`
}

// WorkspaceConfig bounds per-participant state.
type WorkspaceConfig struct {
	Limit        int           `envconfig:"WORKSPACE_LIMIT" default:"256"`
	IdleTimeout  time.Duration `envconfig:"WORKSPACE_IDLE_TIMEOUT" default:"30m"`
	ConsoleSize  int           `envconfig:"CONSOLE_SIZE" default:"100"`
	ErrorLogSize int           `envconfig:"ERROR_LOG_SIZE" default:"500"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8000",
			Host:         "0.0.0.0",
			MaxBodyBytes: 256 << 10,
			CORSOrigins:  []string{"*"},
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Validator: ValidatorConfig{
			MaxCodeSize:       50000,
			MaxConcatenations: 15,
			MaxEntropy:        4.5,
		},
		Sandbox: SandboxConfig{
			Timeout:          5 * time.Second,
			TeardownGrace:    500 * time.Millisecond,
			MaxCallStackSize: 1024,
			MaxTimers:        256,
			ContainerID:      "game-container",
		},
		Submission: SubmissionConfig{
			Dir: "data/users",
		},
		Workspace: WorkspaceConfig{
			Limit:        256,
			IdleTimeout:  30 * time.Minute,
			ConsoleSize:  100,
			ErrorLogSize: 500,
		},
	}
}

// ValidatorConfig converts to the rule engine's configuration.
func (c *Config) ValidatorConfig() validator.Config {
	return validator.Config{
		MaxCodeSize:       c.Validator.MaxCodeSize,
		MaxConcatenations: c.Validator.MaxConcatenations,
		MaxEntropy:        c.Validator.MaxEntropy,
	}
}

// SandboxConfig converts to the runner's configuration. Fields without an
// environment setting keep the runner defaults.
func (c *Config) SandboxConfig() sandbox.Config {
	cfg := sandbox.DefaultConfig()
	cfg.Timeout = c.Sandbox.Timeout
	cfg.TeardownGrace = c.Sandbox.TeardownGrace
	cfg.MaxCallStackSize = c.Sandbox.MaxCallStackSize
	cfg.MaxTimers = c.Sandbox.MaxTimers
	return cfg
}
