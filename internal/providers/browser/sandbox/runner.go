package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/logging"
)

// Runner admits code through the validator and executes it in a fresh
// realm. At most one session is active per runner.
type Runner struct {
	cfg       Config
	validator Validator
	sink      logging.Sink
	attacher  Attacher
	metrics   Metrics

	mu     sync.Mutex
	active *Session
}

// Option configures a Runner
type Option func(*Runner)

// WithSink routes console output and diagnostics to sink.
func WithSink(sink logging.Sink) Option {
	return func(r *Runner) {
		if sink != nil {
			r.sink = sink
		}
	}
}

// WithAttacher sets the component that receives successful sessions.
func WithAttacher(a Attacher) Option {
	return func(r *Runner) {
		r.attacher = a
	}
}

// WithMetrics sets the activity observer.
func WithMetrics(m Metrics) Option {
	return func(r *Runner) {
		if m != nil {
			r.metrics = m
		}
	}
}

// NewRunner creates a runner. Without WithSink, diagnostics go to a
// bounded in-memory ring.
func NewRunner(cfg Config, v Validator, opts ...Option) *Runner {
	r := &Runner{
		cfg:       cfg.withDefaults(),
		validator: v,
		sink:      logging.NewRingLog(logging.DefaultRingCapacity),
		metrics:   noopMetrics{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sink returns the diagnostic sink in use.
func (r *Runner) Sink() logging.Sink {
	return r.sink
}

// Config returns the effective configuration.
func (r *Runner) Config() Config {
	return r.cfg
}

// Execute validates code and, when admitted, runs it in a new session.
//
// Errors are *ValidationError (no realm was created), *ExecutionError (the
// code threw or timed out) or *SetupError. The realm teardown is scheduled
// whenever a realm was created, including on failure.
func (r *Runner) Execute(ctx context.Context, code string) (*Session, error) {
	start := time.Now()

	report := r.validator.Validate(code)
	if err := report.Err(); err != nil {
		r.sink.Log(zapcore.WarnLevel, err.Error())
		r.metrics.RecordExecution(OutcomeBlocked, time.Since(start))
		return nil, err
	}
	for _, w := range report.Warnings {
		r.sink.Log(zapcore.WarnLevel, fmt.Sprintf("line %d: %s", w.Line, w.Message))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		r.active.Close()
		r.active = nil
	}

	session, err := newSession(r.cfg, r.sink, r.metrics)
	if err != nil {
		serr := &SetupError{Stage: "realm", Err: err}
		r.sink.Log(zapcore.ErrorLevel, serr.Error())
		r.metrics.RecordExecution(OutcomeSetupError, time.Since(start))
		return nil, serr
	}
	r.active = session

	err = session.run(ctx, code)
	session.scheduleTeardown(r.cfg.TeardownGrace)
	if err != nil {
		r.sink.Log(zapcore.ErrorLevel, err.Error())
		r.metrics.RecordExecution(OutcomeError, time.Since(start))
		return nil, err
	}

	if r.attacher != nil {
		if err := r.attacher.Attach(session); err != nil {
			var serr *SetupError
			if !errors.As(err, &serr) {
				serr = &SetupError{Stage: "attach", Err: err}
			}
			r.sink.Log(zapcore.ErrorLevel, serr.Error())
			r.metrics.RecordExecution(OutcomeSetupError, time.Since(start))
			return nil, serr
		}
	}

	r.metrics.RecordExecution(OutcomeSuccess, time.Since(start))
	return session, nil
}

// Active returns the live session, if any.
func (r *Runner) Active() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil || r.active.Closed() {
		return nil
	}
	return r.active
}

// Close tears down the active session immediately.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		r.active.Close()
		r.active = nil
	}
}
