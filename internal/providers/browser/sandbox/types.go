package sandbox

import (
	"time"

	"github.com/GriffinCanCode/scriptgate/internal/domain/validator"
)

// Config defines sandbox configuration
type Config struct {
	Timeout          time.Duration // Budget for each entry into the realm
	MaxCallStackSize int           // goja call stack ceiling
	MaxTimers        int           // Pending timers per session
	TeardownGrace    time.Duration // Delay between execution and realm teardown
	FrameInterval    time.Duration // requestAnimationFrame cadence
	DisableConsole   bool          // Drop console.* instead of routing it to the sink
}

// DefaultConfig returns the reference sandbox configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:          5 * time.Second,
		MaxCallStackSize: 1024,
		MaxTimers:        256,
		TeardownGrace:    500 * time.Millisecond,
		FrameInterval:    16 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.MaxCallStackSize <= 0 {
		c.MaxCallStackSize = def.MaxCallStackSize
	}
	if c.MaxTimers <= 0 {
		c.MaxTimers = def.MaxTimers
	}
	if c.TeardownGrace <= 0 {
		c.TeardownGrace = def.TeardownGrace
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = def.FrameInterval
	}
	return c
}

// Validator screens code before it may enter a realm.
type Validator interface {
	Validate(code string) validator.Report
}

// Attacher receives a session after successful execution. The output
// bridge implements it.
type Attacher interface {
	Attach(s *Session) error
}

// Metrics observes runner activity.
type Metrics interface {
	RecordExecution(outcome string, duration time.Duration)
	SessionOpened()
	SessionClosed()
}

// Execution outcomes reported to Metrics
const (
	OutcomeBlocked    = "blocked"
	OutcomeSuccess    = "success"
	OutcomeError      = "error"
	OutcomeSetupError = "setup_error"
)

// DOMChange represents a modification of the realm's render surface
type DOMChange struct {
	Type     string      `json:"type"`     // append, set_attribute
	Selector string      `json:"selector"` // CSS selector of the target
	Property string      `json:"property"`
	Value    interface{} `json:"value"`
}

type noopMetrics struct{}

func (noopMetrics) RecordExecution(string, time.Duration) {}
func (noopMetrics) SessionOpened()                        {}
func (noopMetrics) SessionClosed()                        {}
