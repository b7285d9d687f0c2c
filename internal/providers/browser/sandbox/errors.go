package sandbox

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/scriptgate/internal/domain/validator"
)

// ValidationError is returned when code is refused before any realm exists.
type ValidationError = validator.ValidationError

// ErrSessionClosed is returned by calls into a torn-down session.
var ErrSessionClosed = errors.New("sandbox session closed")

// ErrTooManyTimers is thrown into the realm when the timer cap is reached.
var ErrTooManyTimers = errors.New("too many pending timers")

// ExecutionError wraps a throw, timeout or syntax error raised by admitted
// code inside the realm.
type ExecutionError struct {
	SessionID string
	Message   string
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed: %s", e.Message)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// SetupError reports that the realm or its render surface could not be
// created or attached.
type SetupError struct {
	Stage string // realm, surface, container, attach
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("sandbox setup failed at %s: %v", e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}
